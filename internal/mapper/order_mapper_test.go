package mapper

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/helpdesk/internal/dateformat"
	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

var created = domain.TimestampFromTime(time.Date(2022, time.July, 18, 10, 0, 0, 0, time.UTC))

func testMapper() Mapper {
	return New(dateformat.New(time.UTC))
}

func openDoc() domain.Document {
	return domain.Document{
		domain.FieldPatrimony:   "90908080",
		domain.FieldDescription: "monitor sem imagem",
		domain.FieldStatus:      "open",
		domain.FieldCreatedAt:   created,
		domain.FieldSolution:    nil,
		domain.FieldClosedAt:    nil,
	}
}

func TestToOrder(t *testing.T) {
	order, err := testMapper().ToOrder("123", openDoc())
	require.NoError(t, err)
	require.Equal(t, domain.Order{
		ID:        "123",
		Patrimony: "90908080",
		Status:    domain.OrderStatusOpen,
		When:      "18/07/2022 às 10:00",
	}, order)
}

func TestToOrderMissingRequiredField(t *testing.T) {
	for _, field := range []string{domain.FieldPatrimony, domain.FieldStatus, domain.FieldCreatedAt} {
		t.Run(field, func(t *testing.T) {
			doc := openDoc()
			delete(doc, field)

			order, err := testMapper().ToOrder("123", doc)
			require.ErrorIs(t, err, domain.ErrMalformedRecord)
			require.Contains(t, err.Error(), field)
			require.Equal(t, domain.Order{}, order)
		})
	}
}

func TestToOrderIllTypedFields(t *testing.T) {
	cases := map[string]func(domain.Document){
		"patrimony number":  func(d domain.Document) { d[domain.FieldPatrimony] = 90908080 },
		"unknown status":    func(d domain.Document) { d[domain.FieldStatus] = "pending" },
		"created_at string": func(d domain.Document) { d[domain.FieldCreatedAt] = "2022-07-18" },
		"created_at zero":   func(d domain.Document) { d[domain.FieldCreatedAt] = domain.Timestamp{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			doc := openDoc()
			mutate(doc)
			_, err := testMapper().ToOrder("123", doc)
			require.ErrorIs(t, err, domain.ErrMalformedRecord)
		})
	}
}

func TestToOrderEmptyIDOrDocument(t *testing.T) {
	_, err := testMapper().ToOrder("", openDoc())
	require.ErrorIs(t, err, domain.ErrMalformedRecord)

	_, err = testMapper().ToOrder("123", nil)
	require.ErrorIs(t, err, domain.ErrMalformedRecord)
}

func TestToOrderAcceptsTimestampEncodings(t *testing.T) {
	encodings := map[string]any{
		"time.Time":   created.Time(),
		"pointer":     &created,
		"json float":  map[string]any{"seconds": float64(created.Seconds), "nanoseconds": float64(0)},
		"json number": map[string]any{"seconds": json.Number("1658138400"), "nanoseconds": json.Number("0")},
		"no nanos":    map[string]any{"seconds": int64(1658138400)},
	}
	for name, value := range encodings {
		t.Run(name, func(t *testing.T) {
			doc := openDoc()
			doc[domain.FieldCreatedAt] = value
			order, err := testMapper().ToOrder("123", doc)
			require.NoError(t, err)
			require.Equal(t, "18/07/2022 às 10:00", order.When)
		})
	}
}

func TestToOrderDetailOpen(t *testing.T) {
	detail, err := testMapper().ToOrderDetail("123", openDoc())
	require.NoError(t, err)
	require.True(t, detail.IsOpen())
	require.Equal(t, "monitor sem imagem", detail.Description)
	require.Empty(t, detail.Solution)
	require.Empty(t, detail.Closed)
}

func TestToOrderDetailClosed(t *testing.T) {
	doc := openDoc()
	doc[domain.FieldStatus] = "closed"
	doc[domain.FieldSolution] = "cabo trocado"
	doc[domain.FieldClosedAt] = domain.TimestampFromTime(time.Date(2022, time.July, 19, 14, 30, 0, 0, time.UTC))

	detail, err := testMapper().ToOrderDetail("123", doc)
	require.NoError(t, err)
	require.False(t, detail.IsOpen())
	require.Equal(t, domain.OrderStatusClosed, detail.Status)
	require.Equal(t, "cabo trocado", detail.Solution)
	require.Equal(t, "19/07/2022 às 14:30", detail.Closed)
}

func TestToOrderDetailMalformed(t *testing.T) {
	cases := map[string]func(domain.Document){
		"no description":    func(d domain.Document) { delete(d, domain.FieldDescription) },
		"solution not text": func(d domain.Document) { d[domain.FieldSolution] = 42 },
		"closed_at garbage": func(d domain.Document) { d[domain.FieldClosedAt] = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			doc := openDoc()
			mutate(doc)
			detail, err := testMapper().ToOrderDetail("123", doc)
			require.True(t, errors.Is(err, domain.ErrMalformedRecord), "unexpected error %v", err)
			require.Equal(t, domain.OrderDetail{}, detail)
		})
	}
}
