// Package dateformat превращает отметки времени хранилища в строки для показа.
package dateformat

import (
	"time"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

// Layout: формат "DD/MM/YYYY às HH:mm".
const Layout = "02/01/2006 às 15:04"

// Formatter форматирует Timestamp в заданной зоне. Нулевое значение использует time.Local.
type Formatter struct {
	Location *time.Location
}

// New возвращает Formatter для зоны loc. nil означает time.Local.
func New(loc *time.Location) Formatter {
	return Formatter{Location: loc}
}

// Format возвращает строку и true. Для отсутствующей или некорректной
// отметки возвращает ("", false).
func (f Formatter) Format(ts domain.Timestamp) (string, bool) {
	if !ts.Valid() {
		return "", false
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	return ts.Time().In(loc).Format(Layout), true
}

// Format форматирует ts в локальной зоне процесса.
func Format(ts domain.Timestamp) (string, bool) {
	return Formatter{}.Format(ts)
}

// LoadLocation разбирает имя зоны. Пустое имя и "Local" дают time.Local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
