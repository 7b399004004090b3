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
	"time"

	"log/slog"

	"lectern/internal/api"
	"lectern/internal/daemon"
	"lectern/internal/logging"
	"lectern/internal/logs"
	"lectern/internal/scene"
	"lectern/internal/session"
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
	if err := rpcServer.RegisterName("Lectern", srv); err != nil {
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
					logging.String("impact", "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
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
			logging.String("impact", "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun lectern stop"))
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

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StartedAt = api.FormatTime(status.StartedAt)
	resp.LockPath = status.LockFilePath
	resp.DBPath = status.DBPath
	resp.Watching = status.Watching
	resp.InboxDir = status.InboxDir
	resp.ExportDir = status.ExportDir
	resp.SessionStats = api.MergeSessionStats(status.SessionStats)
	resp.StageHealth = api.StageHealthSlice(status.StageHealth)
	return nil
}

func (s *service) DeckAdd(req DeckAddRequest, resp *DeckAddResponse) error {
	s.log().Debug("deck add requested", logging.String("path", req.Path))
	sess, err := s.daemon.AddDeck(s.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.Session = api.FromSession(sess)
	s.log().Info("deck added via IPC",
		logging.String(logging.FieldEventType, "deck_add"),
		logging.Int64(logging.FieldSessionID, sess.ID))
	return nil
}

func (s *service) SessionList(req SessionListRequest, resp *SessionListResponse) error {
	statuses := make([]session.Status, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := session.ParseStatus(status)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}
	sessions, err := s.daemon.ListSessions(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Sessions = api.FromSessions(sessions)
	if resp.Sessions == nil {
		resp.Sessions = []Session{}
	}
	return nil
}

func (s *service) SessionDescribe(req SessionDescribeRequest, resp *SessionDescribeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid session id %d", req.ID)
	}
	sess, err := s.daemon.GetSession(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session %d not found", req.ID)
	}
	resp.Session = api.FromSession(sess)
	return nil
}

func (s *service) SceneList(req SceneListRequest, resp *SceneListResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid session id %d", req.ID)
	}
	scenes, err := s.daemon.SessionService().Scenes(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.SceneSet = scenes.SceneSet
	resp.Versions = scenes.Versions
	return nil
}

func (s *service) StageRun(req StageRunRequest, resp *StageRunResponse) error {
	st, err := scene.ParseStage(req.Stage)
	if err != nil {
		return err
	}
	s.log().Debug("stage run requested",
		logging.Int64(logging.FieldSessionID, req.ID),
		logging.String(logging.FieldStage, string(st)))
	sess, err := s.daemon.RunStage(s.ctx, req.ID, st)
	if err != nil {
		return err
	}
	resp.Session = api.FromSession(sess)
	resp.Message = fmt.Sprintf("%s stage started for session %d", st, req.ID)
	s.log().Info("stage dispatched via IPC",
		logging.String(logging.FieldEventType, "stage_run"),
		logging.Int64(logging.FieldSessionID, req.ID),
		logging.String(logging.FieldStage, string(st)))
	return nil
}

func (s *service) Approve(req ApproveRequest, resp *ApproveResponse) error {
	sess, err := s.daemon.Approve(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Session = api.FromSession(sess)
	s.log().Info("checkpoint approved via IPC",
		logging.String(logging.FieldEventType, "checkpoint_approve"),
		logging.Int64(logging.FieldSessionID, req.ID))
	return nil
}

func (s *service) Edit(req EditRequest, resp *EditResponse) error {
	if len(req.Edits) == 0 {
		return errors.New("edit requires at least one scene change")
	}
	set, err := s.daemon.ApplyEdits(s.ctx, req.ID, req.Edits)
	if err != nil {
		return err
	}
	if dto := api.FromSceneSet(set); dto != nil {
		resp.SceneSet = *dto
	}
	s.log().Info("checkpoint edited via IPC",
		logging.String(logging.FieldEventType, "checkpoint_edit"),
		logging.Int64(logging.FieldSessionID, req.ID),
		logging.Int("edit_count", len(req.Edits)))
	return nil
}

func (s *service) Export(req ExportRequest, resp *ExportResponse) error {
	s.log().Debug("export requested", logging.Int64(logging.FieldSessionID, req.ID))
	sess, result, err := s.daemon.Export(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Session = api.FromSession(sess)
	resp.Dir = result.Dir
	resp.ScenesPath = result.ScenesPath
	resp.ScriptPath = result.ScriptPath
	s.log().Info("session exported via IPC",
		logging.String(logging.FieldEventType, "session_export"),
		logging.Int64(logging.FieldSessionID, req.ID))
	return nil
}

func (s *service) Regenerate(req RegenerateRequest, resp *RegenerateResponse) error {
	st, err := scene.ParseStage(req.Stage)
	if err != nil {
		return err
	}
	sess, err := s.daemon.Regenerate(s.ctx, req.ID, st)
	if err != nil {
		return err
	}
	resp.Session = api.FromSession(sess)
	s.log().Info("stage reopened via IPC",
		logging.String(logging.FieldEventType, "stage_regenerate"),
		logging.Int64(logging.FieldSessionID, req.ID),
		logging.String(logging.FieldStage, string(st)))
	return nil
}

func (s *service) SessionReset(req SessionResetRequest, resp *SessionResetResponse) error {
	sess, err := s.daemon.ResetSession(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Session = api.FromSession(sess)
	s.log().Info("session reset via IPC",
		logging.String(logging.FieldEventType, "session_reset"),
		logging.Int64(logging.FieldSessionID, req.ID))
	return nil
}

func (s *service) SessionRemove(req SessionRemoveRequest, resp *SessionRemoveResponse) error {
	removed, err := s.daemon.RemoveSession(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("session removed via IPC",
		logging.String(logging.FieldEventType, "session_remove"),
		logging.Int64(logging.FieldSessionID, req.ID))
	return nil
}

func (s *service) SessionsClear(_ SessionsClearRequest, resp *SessionsClearResponse) error {
	s.log().Debug("sessions clear requested")
	removed, err := s.daemon.ClearSessions(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("sessions cleared",
		logging.String(logging.FieldEventType, "sessions_clear"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) SessionsClearExported(_ SessionsClearExportedRequest, resp *SessionsClearExportedResponse) error {
	s.log().Debug("sessions clear exported requested")
	removed, err := s.daemon.ClearExported(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("exported sessions cleared",
		logging.String(logging.FieldEventType, "sessions_clear_exported"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) SessionsResetStuck(_ SessionsResetStuckRequest, resp *SessionsResetStuckResponse) error {
	s.log().Debug("sessions reset stuck requested")
	updated, err := s.daemon.ResetStuck(s.ctx)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.log().Info("stuck sessions reset",
		logging.String(logging.FieldEventType, "sessions_reset_stuck"),
		logging.Int64("updated_count", updated))
	return nil
}

func (s *service) SessionHealth(_ SessionHealthRequest, resp *SessionHealthResponse) error {
	health, err := s.daemon.SessionHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.Total = health.Total
	resp.Draft = health.Draft
	resp.Processing = health.Processing
	resp.Review = health.Review
	resp.Exported = health.Exported
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		// Keep the partial diagnostics; the Error field carries the failure.
		health.Error = err.Error()
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.SchemaVersion = health.SchemaVersion
	resp.TableExists = health.TableExists
	resp.ColumnsPresent = append(resp.ColumnsPresent, health.ColumnsPresent...)
	resp.MissingColumns = append(resp.MissingColumns, health.MissingColumns...)
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalSessions = health.TotalSessions
	resp.Error = health.Error
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
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
