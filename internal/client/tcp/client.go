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
	"time"

	"powsign/internal/domain"
	"powsign/internal/usecases"
)

// maxDifficulty matches the number of hex digits in a SHA-256 digest.
const maxDifficulty = 64

type Client struct {
	cfg           *Config
	solverUsecase usecases.SolverUsecase
	logger        Logger
}

type Config struct {
	ServerAddr     string
	Identity       string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

type Logger interface {
	Error(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

func NewClient(
	cfg *Config,
	solverUsecase usecases.SolverUsecase,
	logger Logger,
) *Client {
	return &Client{
		cfg:           cfg,
		solverUsecase: solverUsecase,
		logger:        logger,
	}
}

// Start submits one proof, retrying retryable failures up to RetryAttempts
// times in total.
func (c *Client) Start(ctx context.Context) (*domain.Receipt, error) {
	if strings.ContainsAny(c.cfg.Identity, "\r\n") {
		return nil, NewClientError("Start", ErrInvalidIdentity, fmt.Sprintf("%q", c.cfg.Identity))
	}

	attempts := c.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.logger.Info("retrying connection",
				"attempt", attempt+1,
				"max_attempts", attempts)

			select {
			case <-time.After(c.cfg.RetryDelay):
			case <-ctx.Done():
				return nil, NewClientError("Start", ctx.Err(), "cancelled while waiting to retry")
			}
		}

		receipt, err := c.executeSession(ctx)
		if err == nil {
			return receipt, nil
		}

		lastErr = err
		c.logger.Error("session error",
			"attempt", attempt+1,
			"error", err)

		if !IsRetryableError(err) {
			break
		}
	}

	return nil, NewClientError("Start", lastErr, "session failed")
}

func (c *Client) executeSession(ctx context.Context) (*domain.Receipt, error) {
	connectCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, err := c.connect(connectCtx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	sessionCtx, cancelSession := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancelSession()

	session := &ClientSession{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		client:  c,
		context: sessionCtx,
	}

	return session.Execute()
}

func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.cfg.ServerAddr)
	if err != nil {
		return nil, NewClientError("connect", fmt.Errorf("%w: %w", ErrConnectFailed, err), "connection failed")
	}

	if err := conn.SetDeadline(time.Now().Add(c.cfg.RequestTimeout)); err != nil {
		conn.Close()
		return nil, NewClientError("connect", err, "setting timeout failed")
	}

	return conn, nil
}

type ClientSession struct {
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	client  *Client
	context context.Context
}

// Execute receives the challenge, solves and signs it, submits the proof and
// returns the server's receipt.
func (s *ClientSession) Execute() (*domain.Receipt, error) {
	challenge, err := s.receiveChallenge()
	if err != nil {
		return nil, err
	}

	proof, err := s.solveChallenge(challenge)
	if err != nil {
		return nil, err
	}

	return s.sendProofAndGetResponse(proof)
}

func (s *ClientSession) receiveChallenge() (domain.Challenge, error) {
	var frame [5]byte
	if _, err := io.ReadFull(s.reader, frame[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return domain.Challenge{}, NewClientError("receiveChallenge", ErrConnectionClosed, "unexpected EOF")
		}
		if isNetTimeout(err) {
			return domain.Challenge{}, NewClientError("receiveChallenge", ErrReadTimeout, "reading challenge timed out")
		}
		return domain.Challenge{}, NewClientError("receiveChallenge", err, "reading challenge failed")
	}

	if frame[0] != domain.ProtocolVersion {
		// a server that rejects before challenging writes an ERROR line instead
		if frame[0] == 'E' {
			line, _ := s.reader.ReadString('\n')
			return domain.Challenge{}, s.handleRejection(strings.TrimSpace(string(frame[:]) + line))
		}
		return domain.Challenge{}, NewClientError("receiveChallenge", ErrInvalidChallenge, fmt.Sprintf("unknown version 0x%02x", frame[0]))
	}

	difficulty := binary.BigEndian.Uint32(frame[1:])
	if difficulty > maxDifficulty {
		return domain.Challenge{}, NewClientError("receiveChallenge", ErrInvalidChallenge, fmt.Sprintf("difficulty %d", difficulty))
	}

	s.client.logger.Info("challenge received", "difficulty", difficulty)

	return domain.Challenge{
		Version:    frame[0],
		Difficulty: uint64(difficulty),
	}, nil
}

func (s *ClientSession) solveChallenge(challenge domain.Challenge) (*domain.Proof, error) {
	started := time.Now()
	proof, err := s.client.solverUsecase.Prove(s.context, s.client.cfg.Identity, challenge)
	if err != nil {
		return nil, NewClientError("solveChallenge", fmt.Errorf("%w: %w", ErrSolutionNotFound, err), "no proof produced")
	}

	s.client.logger.Info("challenge solved",
		"identity", proof.Identity,
		"nonce", proof.Nonce,
		"elapsed", time.Since(started).String())
	return proof, nil
}

func (s *ClientSession) sendProofAndGetResponse(proof *domain.Proof) (*domain.Receipt, error) {
	errCh := make(chan error, 1)

	go func() {
		if _, err := s.writer.WriteString(formatProof(proof)); err != nil {
			errCh <- NewClientError("sendProof", err, "sending proof failed")
			return
		}

		if err := s.writer.Flush(); err != nil {
			errCh <- NewClientError("sendProof", err, "flush failed")
			return
		}

		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	case <-s.context.Done():
		return nil, NewClientError("sendProof", ErrWriteTimeout, "write timeout")
	}

	type result struct {
		response string
		err      error
	}
	responseCh := make(chan result, 1)

	go func() {
		response, err := s.reader.ReadString('\n')
		responseCh <- result{response, err}
	}()

	select {
	case r := <-responseCh:
		if r.err != nil {
			if isNetTimeout(r.err) {
				return nil, NewClientError("sendProof", ErrReadTimeout, "read timeout")
			}
			return nil, NewClientError("sendProof", r.err, "reading response failed")
		}
		return s.handleResponse(strings.TrimSpace(r.response))
	case <-s.context.Done():
		return nil, NewClientError("sendProof", ErrReadTimeout, "read timeout")
	}
}

func (s *ClientSession) handleResponse(response string) (*domain.Receipt, error) {
	if strings.HasPrefix(response, "SUCCESS:") {
		parts := strings.SplitN(strings.TrimPrefix(response, "SUCCESS:"), ":", 2)
		if len(parts) != 2 {
			return nil, NewClientError("handleResponse", ErrInvalidProtocol, "invalid success format")
		}
		receipt := &domain.Receipt{
			Digest:      parts[0],
			Fingerprint: parts[1],
		}
		s.client.logger.Info("proof accepted",
			"digest", receipt.Digest,
			"fingerprint", receipt.Fingerprint)
		return receipt, nil
	}

	if strings.HasPrefix(response, "ERROR:") {
		return nil, s.handleRejection(response)
	}

	return nil, NewClientError("handleResponse", ErrInvalidProtocol, "invalid response format")
}

func (s *ClientSession) handleRejection(response string) error {
	parts := strings.SplitN(strings.TrimPrefix(response, "ERROR:"), ":", 2)
	if len(parts) != 2 {
		return NewClientError("handleResponse", ErrInvalidProtocol, "invalid error format")
	}
	return NewClientError("handleResponse", &RejectionError{Code: parts[0], Message: parts[1]}, "proof rejected")
}

// formatProof renders identity, nonce, signature and public key as four lines.
func formatProof(proof *domain.Proof) string {
	var b strings.Builder
	b.WriteString(proof.Identity)
	b.WriteByte('\n')
	b.WriteString(strconv.FormatUint(proof.Nonce, 10))
	b.WriteByte('\n')
	b.WriteString(base64.StdEncoding.EncodeToString(proof.Signature))
	b.WriteByte('\n')
	b.WriteString(base64.StdEncoding.EncodeToString(proof.PublicKey))
	b.WriteByte('\n')
	return b.String()
}
