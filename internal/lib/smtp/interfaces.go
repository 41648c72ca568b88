// Package smtp отправляет письма об изменении тарифа через STARTTLS.
package smtp

import "io"

// Client сессия с почтовым сервером, достаточная для одного письма.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}
