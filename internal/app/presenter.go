package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
	"github.com/vladislavdragonenkov/helpdesk/internal/service/orderdetail"
	"github.com/vladislavdragonenkov/helpdesk/internal/service/orderlist"
)

// Presenter печатает состояние контроллеров в текстовом виде.
type Presenter struct {
	out io.Writer
}

// NewPresenter создаёт презентер, пишущий в out.
func NewPresenter(out io.Writer) *Presenter {
	return &Presenter{out: out}
}

func filterTitle(status domain.OrderStatus) string {
	if status == domain.OrderStatusClosed {
		return "Finalizados"
	}
	return "Em andamento"
}

func statusLabel(status domain.OrderStatus) string {
	if status == domain.OrderStatusClosed {
		return "finalizado"
	}
	return "em andamento"
}

// List печатает список заявок.
func (p *Presenter) List(st orderlist.State) {
	var b strings.Builder
	fmt.Fprintf(&b, "Solicitações [%s] %d\n", filterTitle(st.Status), st.Count)

	switch {
	case st.Err != nil:
		fmt.Fprintf(&b, "! %s\n", domain.UserMessage(st.Err))
	case st.Loading:
		b.WriteString("Carregando...\n")
	case st.Count == 0:
		empty := "em andamento"
		if st.Status == domain.OrderStatusClosed {
			empty = "finalizadas"
		}
		fmt.Fprintf(&b, "Você ainda não possui solicitações %s\n", empty)
	default:
		for _, o := range st.Orders {
			fmt.Fprintf(&b, "  %s  Patrimônio %s  %s\n", o.ID, o.Patrimony, o.When)
		}
	}
	_, _ = io.WriteString(p.out, b.String())
}

// Detail печатает экран заявки.
func (p *Presenter) Detail(st orderdetail.State) {
	var b strings.Builder
	switch {
	case st.Loading:
		b.WriteString("Carregando...\n")
	case !st.Loaded && st.Err != nil:
		fmt.Fprintf(&b, "! %s\n", domain.UserMessage(st.Err))
	case st.Loaded:
		o := st.Order
		fmt.Fprintf(&b, "Solicitação %s [%s]\n", o.ID, strings.ToUpper(statusLabel(o.Status)))
		fmt.Fprintf(&b, "  equipamento: Patrimônio %s\n", o.Patrimony)
		fmt.Fprintf(&b, "  descrição do problema: %s\n", o.Description)
		fmt.Fprintf(&b, "    Registrado em %s\n", o.When)
		if o.Solution != "" {
			fmt.Fprintf(&b, "  solução: %s\n", o.Solution)
		}
		if o.Closed != "" {
			fmt.Fprintf(&b, "    Encerrado em %s\n", o.Closed)
		}
		if st.Closing {
			b.WriteString("Encerrando...\n")
		}
		if st.Err != nil {
			fmt.Fprintf(&b, "! %s\n", domain.UserMessage(st.Err))
		}
	}
	_, _ = io.WriteString(p.out, b.String())
}

// Message печатает одну строку.
func (p *Presenter) Message(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}
