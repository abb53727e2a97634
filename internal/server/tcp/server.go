package tcp

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"powsign/internal/domain"
	"powsign/internal/usecases"
)

const defaultMaxRequestSize = 8 * 1024

type Server struct {
	cfg          *Config
	proofUsecase usecases.ProofUsecase
	logger       Logger
	limiter      *rate.Limiter
}

type Config struct {
	Address        string
	KeepAlive      time.Duration
	Deadline       time.Duration
	MaxRequestSize int64
	RateLimit      float64 // connections per second, <= 0 disables limiting
	RateBurst      int
}

type Logger interface {
	Error(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

func NewServer(cfg *Config, proofUsecase usecases.ProofUsecase, logger Logger) *Server {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if cfg.RateBurst < 1 {
		cfg.RateBurst = 1
	}
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = defaultMaxRequestSize
	}
	return &Server{
		cfg:          cfg,
		proofUsecase: proofUsecase,
		logger:       logger,
		limiter:      rate.NewLimiter(limit, cfg.RateBurst),
	}
}

func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{
		KeepAlive: s.cfg.KeepAlive,
	}

	listener, err := lc.Listen(ctx, "tcp", s.cfg.Address)
	if err != nil {
		return NewConnectionError("Run", err, "failed to start listener")
	}

	s.logger.Info("server started", "address", listener.Addr().String())

	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is done. It closes the
// listener and waits for open sessions before returning.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stop()
	defer listener.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Debug("listener closed")
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) handleConnection(parent context.Context, conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("connection close failed",
				"error", NewConnectionError("handleConnection", err, "cleanup failed"))
		}
	}()

	ctx, cancel := context.WithTimeout(parent, s.cfg.Deadline)
	defer cancel()

	if err := conn.SetDeadline(time.Now().Add(s.cfg.Deadline)); err != nil {
		s.logger.Error("set deadline failed",
			"error", NewConnectionError("handleConnection", err, "setting timeout failed"))
		return
	}

	session := &Session{
		id:      uuid.NewString(),
		conn:    conn,
		reader:  bufio.NewReader(io.LimitReader(conn, s.cfg.MaxRequestSize)),
		writer:  bufio.NewWriter(conn),
		server:  s,
		context: ctx,
	}

	if !s.limiter.Allow() {
		s.handleError(session, NewConnectionError("handleConnection", ErrRateLimited, conn.RemoteAddr().String()))
		return
	}

	s.logger.Debug("session opened", "session", session.id, "remote", conn.RemoteAddr().String())

	if err := session.Handle(); err != nil {
		s.handleError(session, err)
	}
}

type Session struct {
	id      string
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	server  *Server
	context context.Context
}

// Handle runs one challenge, proof, verdict exchange.
func (s *Session) Handle() error {
	challenge, err := s.sendChallenge()
	if err != nil {
		return fmt.Errorf("failed to send challenge: %w", err)
	}

	proof, err := s.readProof()
	if err != nil {
		return fmt.Errorf("failed to read proof: %w", err)
	}

	if err := s.validateAndRespond(challenge, proof); err != nil {
		return fmt.Errorf("failed to validate and respond: %w", err)
	}

	return nil
}

// sendChallenge writes the version byte followed by the big-endian uint32
// difficulty.
func (s *Session) sendChallenge() (domain.Challenge, error) {
	challenge := s.server.proofUsecase.Challenge()

	frame := make([]byte, 5)
	frame[0] = challenge.Version
	binary.BigEndian.PutUint32(frame[1:], uint32(challenge.Difficulty))

	if err := s.write(frame); err != nil {
		return challenge, NewConnectionError("sendChallenge", err, "write challenge failed")
	}

	s.server.logger.Info("challenge sent", "session", s.id, "difficulty", challenge.Difficulty)
	return challenge, nil
}

// readProof reads identity, nonce, base64 signature and base64 public key,
// one per line.
func (s *Session) readProof() (*domain.Proof, error) {
	type result struct {
		lines []string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		lines := make([]string, 0, proofLines)
		for len(lines) < proofLines {
			line, err := s.reader.ReadString('\n')
			if err != nil {
				if isNetTimeout(err) {
					err = ErrReadTimeout
				} else if errors.Is(err, io.EOF) && (line != "" || len(lines) > 0) {
					err = fmt.Errorf("%w: truncated or oversized request", ErrSolutionFormat)
				} else if errors.Is(err, io.EOF) {
					err = ErrConnectionClosed
				}
				resultCh <- result{nil, NewConnectionError("readProof", err, fmt.Sprintf("reading line %d failed", len(lines)+1))}
				return
			}
			lines = append(lines, strings.TrimRight(line, "\r\n"))
		}
		resultCh <- result{lines, nil}
	}()

	select {
	case r := <-resultCh:
		if r.err != nil {
			return nil, r.err
		}
		return parseProof(r.lines)
	case <-s.context.Done():
		return nil, NewConnectionError("readProof", ErrReadTimeout, "context deadline exceeded")
	}
}

func (s *Session) validateAndRespond(challenge domain.Challenge, proof *domain.Proof) error {
	receipt, err := s.server.proofUsecase.ValidateProof(proof)
	if err != nil {
		return NewConnectionError("validateAndRespond", err, fmt.Sprintf("identity %q nonce %d", proof.Identity, proof.Nonce))
	}

	s.server.logger.Info("proof accepted",
		"session", s.id,
		"identity", proof.Identity,
		"nonce", proof.Nonce,
		"difficulty", challenge.Difficulty,
		"digest", receipt.Digest,
		"fingerprint", receipt.Fingerprint)

	if err := s.write([]byte(formatSuccessResponse(receipt))); err != nil {
		return NewConnectionError("validateAndRespond", err, "write response failed")
	}
	return nil
}

// write flushes data, giving up when the session context ends.
func (s *Session) write(data []byte) error {
	errCh := make(chan error, 1)
	go func() {
		_, err := s.writer.Write(data)
		if err == nil {
			err = s.writer.Flush()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if isNetTimeout(err) {
			return ErrWriteTimeout
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDelivery, err)
		}
		return nil
	case <-s.context.Done():
		// unblock the pending write and wait for it so the writer is free
		s.conn.SetWriteDeadline(time.Now())
		<-errCh
		return ErrWriteTimeout
	}
}

func (s *Server) handleError(session *Session, err error) {
	response := ToErrorResponse(err)
	s.logger.Error("client error",
		"session", session.id,
		"code", response.Code,
		"message", response.Message,
		"error", err)

	// the peer is not reading, an ERROR line would not reach it either
	if errors.Is(err, ErrWriteTimeout) {
		return
	}

	if err := sendErrorResponse(session.writer, response); err != nil {
		s.logger.Debug("failed to send error response", "session", session.id, "error", err)
	}
}

// Helper functions

const proofLines = 4

func parseProof(lines []string) (*domain.Proof, error) {
	if len(lines) != proofLines {
		return nil, NewConnectionError("parseProof", ErrSolutionFormat, fmt.Sprintf("expected %d lines, got %d", proofLines, len(lines)))
	}

	nonce, err := strconv.ParseUint(strings.TrimSpace(lines[1]), 10, 64)
	if err != nil {
		return nil, NewConnectionError("parseProof", ErrSolutionFormat, "nonce is not a decimal integer")
	}
	signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(lines[2]))
	if err != nil || len(signature) == 0 {
		return nil, NewConnectionError("parseProof", ErrSolutionFormat, "signature is not base64")
	}
	publicKey, err := base64.StdEncoding.DecodeString(strings.TrimSpace(lines[3]))
	if err != nil || len(publicKey) == 0 {
		return nil, NewConnectionError("parseProof", ErrSolutionFormat, "public key is not base64")
	}

	return &domain.Proof{
		Identity:  lines[0],
		Nonce:     nonce,
		Signature: signature,
		PublicKey: publicKey,
	}, nil
}

func formatSuccessResponse(receipt *domain.Receipt) string {
	return fmt.Sprintf("SUCCESS:%s:%s\n", receipt.Digest, receipt.Fingerprint)
}

func sendErrorResponse(writer *bufio.Writer, response ErrorResponse) error {
	_, err := writer.WriteString(fmt.Sprintf("ERROR:%s:%s\n", response.Code, response.Message))
	if err != nil {
		return err
	}
	return writer.Flush()
}
