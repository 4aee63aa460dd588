package nativemsg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/passhost/internal/domain/model"
)

// Handler processes one decoded request. *application.Dispatcher satisfies it.
type Handler interface {
	Handle(ctx context.Context, req model.Request) model.Response
}

// Server reads framed requests, hands them to a Handler one at a time and
// writes each response before reading the next request.
type Server struct {
	handler        Handler
	codec          *Codec
	logger         *slog.Logger
	maxRequestSize int

	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup
}

// NewServer creates a Server. maxRequestSize <= 0 selects DefaultMaxRequestSize.
func NewServer(handler Handler, logger *slog.Logger, maxRequestSize int) (*Server, error) {
	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}
	if maxRequestSize <= 0 {
		maxRequestSize = DefaultMaxRequestSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		handler:        handler,
		codec:          codec,
		logger:         logger,
		maxRequestSize: maxRequestSize,
	}, nil
}

// Serve runs until r reaches EOF, ctx is canceled between requests, Shutdown
// is called, or the stream breaks. A clean EOF returns nil. Per-request
// failures are answered with an Error response and never end the loop.
//
// Canceling ctx does not abort a request that has already been read: it runs
// to completion and its response is written.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		payload, err := ReadFrame(r, s.maxRequestSize)
		var tooLarge *FrameTooLargeError
		switch {
		case errors.Is(err, io.EOF):
			s.logger.Info("native messaging stream closed")
			return nil
		case errors.As(err, &tooLarge):
			s.logger.Warn("rejecting oversized request", "size", tooLarge.Size, "limit", tooLarge.Limit)
			if err := discardFrame(r, tooLarge.Size); err != nil {
				return fmt.Errorf("discard oversized request: %w", err)
			}
			if err := s.write(w, model.Failure{Message: "message too large"}); err != nil {
				return err
			}
			continue
		case err != nil:
			return fmt.Errorf("read request: %w", err)
		}

		if ctx.Err() != nil || !s.begin() {
			s.logger.Info("dropping request received during shutdown")
			return nil
		}
		err = s.write(w, s.handle(context.WithoutCancel(ctx), payload))
		s.inflight.Done()
		if err != nil {
			return err
		}
	}
}

// Shutdown stops Serve from taking new requests and waits for the one in
// flight, if any. It returns ctx.Err() when ctx expires first. Serve itself
// may stay blocked reading the next frame until its reader is closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *Server) handle(ctx context.Context, payload []byte) model.Response {
	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID)
	start := time.Now()

	req, err := s.codec.DecodeRequest(payload)
	if err != nil {
		logger.Warn("invalid request", "size", len(payload), "error", err)
		return model.Failure{Message: model.Message(err)}
	}

	resp := s.handler.Handle(ctx, req)

	logger.Debug("request handled",
		"type", requestType(req),
		"response", responseType(resp),
		"duration", time.Since(start).Round(time.Microsecond),
	)
	return resp
}

func (s *Server) write(w io.Writer, resp model.Response) error {
	out, err := EncodeResponse(resp)
	if err == nil && len(out) > MaxResponseSize {
		s.logger.Warn("response exceeds browser limit", "size", len(out))
		out, err = EncodeResponse(model.Failure{Message: "message too large"})
	}
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	if err := WriteFrame(w, out); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func requestType(req model.Request) string {
	switch req.(type) {
	case model.GetCredential:
		return "GetPassword"
	case model.SaveCredential:
		return "SavePassword"
	case model.DeleteCredential:
		return "DeletePassword"
	default:
		return fmt.Sprintf("%T", req)
	}
}

func responseType(resp model.Response) string {
	switch resp.(type) {
	case model.CredentialResponse:
		return "Password"
	case model.Success:
		return "Success"
	case model.Failure:
		return "Error"
	default:
		return fmt.Sprintf("%T", resp)
	}
}
