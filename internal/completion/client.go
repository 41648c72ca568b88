// Package completion реализует потоковый клиент OpenAI-совместимого
// API chat/completions: открывает SSE-поток и отдает фрагменты ответа по одному.
package completion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/magabrotheeeer/patriot-desa/internal/config"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
)

// DefaultSystemPrompt вступление ассистента, если в конфиге не задано свое.
const DefaultSystemPrompt = "Anda adalah Patriot Desa, asisten AI yang membantu pengelolaan desa. " +
	"Berikan jawaban yang informatif, praktis, dan ramah untuk membantu aparatur desa, " +
	"pendamping desa, BUMDes/Kopdes, dan masyarakat umum."

const (
	rateLimitMessage = "OpenAI API rate limit exceeded or quota depleted. Please check your OpenAI account billing."
	maxLineSize      = 1 << 20
	doneMarker       = "data: [DONE]"
	dataPrefix       = "data: "
)

// ErrNotConfigured не задан ключ API.
var ErrNotConfigured = errors.New("completion API key is not configured")

// Message сообщение переписки в формате API.
type Message struct {
	Role    string `json:"role" validate:"required"`
	Content string `json:"content"`
}

// UpstreamError ответ API с кодом не 2xx.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == http.StatusTooManyRequests {
		return rateLimitMessage
	}
	msg := e.Message
	if msg == "" {
		msg = "Unknown error"
	}
	return fmt.Sprintf("OpenAI API error: %d - %s", e.StatusCode, msg)
}

// ClientStatus HTTP-статус, который получает наш клиент.
func (e *UpstreamError) ClientStatus() int {
	if e.StatusCode == http.StatusTooManyRequests {
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Client клиент API.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	httpClient   *http.Client
	log          *slog.Logger
}

// New создает клиента. Общий таймаут клиента не задается: поток
// ограничивается контекстом запроса, а cfg.Timeout ждет только заголовков ответа.
func New(cfg config.Completion, log *slog.Logger) *Client {
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		systemPrompt: prompt,
		httpClient:   &http.Client{Transport: transport},
		log:          log,
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Stream   bool      `json:"stream"`
	Messages []Message `json:"messages"`
}

type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Open отправляет переписку с системным вступлением и возвращает поток,
// если API ответил 2xx. Иначе возвращает *UpstreamError и ничего не читает дальше.
func (c *Client) Open(ctx context.Context, messages []Message) (*Stream, error) {
	const op = "completion.Open"
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	all := make([]Message, 0, len(messages)+1)
	all = append(all, Message{Role: "system", Content: c.systemPrompt})
	all = append(all, messages...)

	body, err := json.Marshal(chatRequest{Model: c.model, Stream: true, Messages: all})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() {
			_ = resp.Body.Close()
		}()
		var eb errorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &eb)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: eb.Error.Message}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	return &Stream{body: resp.Body, scanner: scanner, log: c.log}, nil
}

// Stream открытый SSE-поток ответа.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	log     *slog.Logger
}

// Next возвращает следующий непустой фрагмент delta.content.
// io.EOF означает штатное завершение: маркер [DONE] или конец потока.
func (s *Stream) Next() (string, error) {
	const op = "completion.Stream.Next"
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == doneMarker {
			return "", io.EOF
		}
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		var c chunk
		if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &c); err != nil {
			s.log.Debug("skip malformed chunk", slog.String("op", op), sl.Err(err))
			continue
		}
		if len(c.Choices) == 0 || c.Choices[0].Delta.Content == "" {
			continue
		}
		return c.Choices[0].Delta.Content, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return "", io.EOF
}

// Close закрывает тело ответа.
func (s *Stream) Close() error {
	return s.body.Close()
}
