package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

func TestParseOrderStatus(t *testing.T) {
	cases := []struct {
		raw     string
		want    domain.OrderStatus
		wantErr bool
	}{
		{raw: "open", want: domain.OrderStatusOpen},
		{raw: " Closed ", want: domain.OrderStatusClosed},
		{raw: "pending", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := domain.ParseOrderStatus(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	if !domain.CanTransition(domain.OrderStatusOpen, domain.OrderStatusClosed) {
		t.Fatal("open -> closed must be allowed")
	}
	if domain.CanTransition(domain.OrderStatusClosed, domain.OrderStatusOpen) {
		t.Fatal("closed -> open must be rejected")
	}
	if domain.CanTransition(domain.OrderStatusClosed, domain.OrderStatusClosed) {
		t.Fatal("closed -> closed must be rejected")
	}
}

func TestNewOrderNormalize(t *testing.T) {
	order, err := domain.NewOrder{Patrimony: " 90908080 ", Description: " monitor sem imagem "}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Patrimony != "90908080" || order.Description != "monitor sem imagem" {
		t.Fatalf("expected trimmed fields, got %+v", order)
	}

	cases := []struct {
		name  string
		order domain.NewOrder
	}{
		{name: "no patrimony", order: domain.NewOrder{Description: "x"}},
		{name: "no description", order: domain.NewOrder{Patrimony: "1"}},
		{name: "whitespace only", order: domain.NewOrder{Patrimony: "  ", Description: "\t"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.order.Normalize(); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestTimestamp(t *testing.T) {
	var zero domain.Timestamp
	if !zero.IsZero() || zero.Valid() {
		t.Fatal("zero timestamp must be absent and invalid")
	}

	ts := domain.Timestamp{Seconds: 1658138400}
	if !ts.Valid() {
		t.Fatal("expected valid timestamp")
	}
	if got := domain.TimestampFromTime(ts.Time()); got != ts {
		t.Fatalf("expected %+v, got %+v", ts, got)
	}

	if (domain.Timestamp{Seconds: 1, Nanoseconds: -1}).Valid() {
		t.Fatal("negative nanoseconds must be invalid")
	}
}

func TestServerTimestampMarker(t *testing.T) {
	if !domain.IsServerTimestamp(domain.ServerTimestamp) {
		t.Fatal("expected marker to be recognised")
	}
	if domain.IsServerTimestamp(domain.Timestamp{Seconds: 1}) {
		t.Fatal("concrete timestamp is not a marker")
	}
}
