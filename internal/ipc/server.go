package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"log/slog"

	"doorman/internal/daemon"
	"doorman/internal/decision"
	"doorman/internal/logging"
	"doorman/internal/logs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Doorman", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func recordView(record *decision.Record) RecordView {
	return RecordView{
		IdentityKey: record.IdentityKey,
		DisplayName: record.DisplayName,
		Status:      string(record.Status),
		FirstSeenAt: record.FirstSeenAt,
		DecidedAt:   record.DecidedAt,
		ExecutedAt:  record.ExecutedAt,
		Notified:    record.Notified,
	}
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.Paused = status.Paused
	resp.PID = status.PID
	resp.DBPath = status.DBPath
	resp.LockPath = status.LockPath
	resp.Records = map[string]int{
		"total":      status.Records.Total,
		"pending":    status.Records.Pending,
		"actionable": status.Records.Actionable,
		"executed":   status.Records.Executed,
	}
	resp.LastError = status.LastError
	if status.LastCycle != nil {
		resp.LastCycle = &CycleView{
			CycleID:   status.LastCycle.CycleID,
			StartedAt: status.LastCycle.StartedAt,
			Duration:  status.LastCycle.Duration.String(),
			Seen:      status.LastCycle.Seen,
			Notified:  status.LastCycle.Notified,
			Executed:  status.LastCycle.Executed,
			Skipped:   status.LastCycle.Skipped,
			Errors:    status.LastCycle.Errors,
		}
	}
	return nil
}

func (s *service) Pause(_ PauseRequest, resp *PauseResponse) error {
	s.log().Debug("pause requested")
	s.daemon.Pause()
	resp.Paused = true
	return nil
}

func (s *service) Resume(_ ResumeRequest, resp *ResumeResponse) error {
	s.log().Debug("resume requested")
	s.daemon.Resume()
	resp.Paused = false
	return nil
}

func (s *service) RequestList(req RequestListRequest, resp *RequestListResponse) error {
	statuses := make([]decision.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		parsed, ok := decision.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, parsed)
	}
	records, err := s.daemon.ListRecords(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Records = make([]RecordView, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		resp.Records = append(resp.Records, recordView(record))
	}
	return nil
}

func (s *service) RequestDescribe(req RequestDescribeRequest, resp *RequestDescribeResponse) error {
	if strings.TrimSpace(req.IdentityKey) == "" {
		return errors.New("identity key required")
	}
	record, err := s.daemon.GetRecord(s.ctx, req.IdentityKey)
	if err != nil {
		return err
	}
	resp.Record = recordView(record)
	return nil
}

func (s *service) Decide(req DecideRequest, resp *DecideResponse) error {
	s.log().Debug("decision requested",
		logging.String("identity_key", req.IdentityKey),
		logging.String("decision", req.Decision))
	record, err := s.daemon.Decide(s.ctx, req.IdentityKey, req.Decision)
	if err != nil {
		return err
	}
	resp.Record = recordView(record)
	s.log().Info("decision recorded via IPC",
		logging.String("identity_key", record.IdentityKey),
		logging.String("status", string(record.Status)))
	return nil
}

func (s *service) Wake(_ WakeRequest, resp *WakeResponse) error {
	s.daemon.Wake()
	resp.Queued = true
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if err := s.daemon.TestNotification(s.ctx); err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	resp.Message = "test notification sent"
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health := s.daemon.DatabaseHealth(s.ctx)
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.TableExists = health.TableExists
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalRecords = health.TotalRecords
	resp.Error = health.Error
	return nil
}
