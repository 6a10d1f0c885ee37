package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"camqueue/internal/daemon"
	"camqueue/internal/logging"
	"camqueue/internal/queue"
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
	if err := rpcServer.RegisterName("Camqueue", srv); err != nil {
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
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
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
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
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

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.QueueRunning = status.QueueRunning
	resp.QueuePaused = status.QueuePaused
	resp.QueueFilePath = status.QueueFilePath
	resp.LockPath = status.LockFilePath
	resp.ArchiveEnabled = status.ArchiveEnabled
	resp.QueueStats = make(map[string]int, len(status.QueueStats))
	for k, v := range status.QueueStats {
		resp.QueueStats[string(k)] = v
	}
	if status.CurrentJob != nil {
		view := viewFromJob(status.CurrentJob, -1)
		resp.CurrentJob = &view
	}
	return nil
}

func (s *service) QueueAdd(req QueueAddRequest, resp *QueueAddResponse) error {
	job, err := s.daemon.QueueAdd(req.FilePath, req.Name)
	if err != nil {
		return err
	}
	_, position, _ := s.daemon.QueueJobByID(job.ID)
	resp.Job = viewFromJob(job, position)
	s.log().Info("job added via IPC",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobName, job.Name),
		logging.String(logging.FieldEventType, "queue_add"))
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	filter := make(map[queue.Status]struct{}, len(req.Statuses))
	for _, raw := range req.Statuses {
		if status, ok := queue.ParseStatus(raw); ok {
			filter[status] = struct{}{}
		}
	}

	snap := s.daemon.QueueSnapshot()
	resp.Jobs = make([]JobView, 0, len(snap.Jobs))
	for i, job := range snap.Jobs {
		if len(filter) > 0 {
			if _, ok := filter[job.Status]; !ok {
				continue
			}
		}
		resp.Jobs = append(resp.Jobs, viewFromJob(job, i))
	}
	return nil
}

func (s *service) QueueRemove(req QueueRemoveRequest, resp *QueueRemoveResponse) error {
	if req.ID == "" {
		return errors.New("queue remove requires a job id")
	}
	resp.Removed = s.daemon.QueueRemove(req.ID)
	if resp.Removed {
		s.log().Info("job removed via IPC",
			logging.String(logging.FieldJobID, req.ID),
			logging.String(logging.FieldEventType, "queue_remove"))
	}
	return nil
}

func (s *service) QueueMove(req QueueMoveRequest, resp *QueueMoveResponse) error {
	resp.Moved = s.daemon.QueueMove(req.From, req.To)
	return nil
}

func (s *service) QueueHold(req QueueHoldRequest, resp *QueueHoldResponse) error {
	if err := s.daemon.QueueHold(req.ID); err != nil {
		return err
	}
	job, _, ok := s.daemon.QueueJobByID(req.ID)
	if !ok {
		return fmt.Errorf("job %s not found", req.ID)
	}
	resp.Status = string(job.Status)
	return nil
}

func (s *service) QueueResume(req QueueResumeRequest, resp *QueueResumeResponse) error {
	if err := s.daemon.QueueResume(req.ID); err != nil {
		return err
	}
	job, _, ok := s.daemon.QueueJobByID(req.ID)
	if !ok {
		return fmt.Errorf("job %s not found", req.ID)
	}
	resp.Status = string(job.Status)
	return nil
}

func (s *service) QueueSkip(req QueueSkipRequest, resp *QueueSkipResponse) error {
	if err := s.daemon.QueueSkip(req.ID); err != nil {
		return err
	}
	resp.Skipped = true
	return nil
}

func (s *service) SkipCurrent(_ SkipCurrentRequest, resp *SkipCurrentResponse) error {
	resp.Skipped = s.daemon.SkipCurrent()
	return nil
}

func (s *service) QueueClearCompleted(_ QueueClearCompletedRequest, resp *QueueClearCompletedResponse) error {
	resp.Cleared = s.daemon.ClearCompleted()
	s.log().Info("completed jobs cleared via IPC",
		logging.String(logging.FieldEventType, "queue_clear_completed"),
		logging.Int("cleared_count", resp.Cleared))
	return nil
}

func (s *service) QueueStart(_ QueueStartRequest, resp *QueueStartResponse) error {
	s.daemon.StartQueue(s.ctx)
	resp.Running = true
	s.log().Info("queue started via IPC",
		logging.String(logging.FieldEventType, "queue_start"))
	return nil
}

func (s *service) QueuePause(_ QueuePauseRequest, resp *QueuePauseResponse) error {
	s.daemon.PauseQueue()
	resp.Paused = true
	s.log().Info("queue paused via IPC",
		logging.String(logging.FieldEventType, "queue_pause"))
	return nil
}

func (s *service) QueueStop(_ QueueStopRequest, resp *QueueStopResponse) error {
	s.daemon.StopQueue()
	resp.Stopped = true
	s.log().Info("queue stopped via IPC",
		logging.String(logging.FieldEventType, "queue_stop"))
	return nil
}

func (s *service) HistoryList(req HistoryListRequest, resp *HistoryListResponse) error {
	jobs, err := s.daemon.History(req.Archived, req.Limit)
	if err != nil {
		return err
	}
	resp.Jobs = make([]JobView, 0, len(jobs))
	for i, job := range jobs {
		resp.Jobs = append(resp.Jobs, viewFromJob(job, i))
	}
	return nil
}

func (s *service) ExecutionFinished(req ExecutionFinishedRequest, resp *ExecutionFinishedResponse) error {
	s.daemon.ExecutionFinished(req.Success, req.ErrorMessage)
	resp.Accepted = true
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	chunk, err := s.daemon.TailLog(req.Offset, req.Limit)
	if err != nil {
		return err
	}
	resp.Lines = chunk.Lines
	resp.Offset = chunk.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
