package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/foldkeep/collabd/internal/adminpb"
	"github.com/foldkeep/collabd/internal/adminserver"
	"github.com/foldkeep/collabd/internal/config"
	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/persistence"
	"github.com/foldkeep/collabd/internal/rowblock"
	"github.com/foldkeep/collabd/internal/syncproto"
	"github.com/foldkeep/collabd/pkg/api"
	"github.com/foldkeep/collabd/pkg/events"
	"github.com/foldkeep/collabd/pkg/log"
	"github.com/foldkeep/collabd/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collabd daemon: sync listener, admin gRPC surface, health/metrics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		initLogging(cfg)
		return runDaemon(cfg)
	},
}

func runDaemon(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	store, err := persistence.Open(filepath.Join(cfg.DataDir, "collabd.db"), persistence.OpenOptions{AutoRepair: cfg.AutoRepair})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	uid := []byte(cfg.UID)
	workspaceID := []byte(cfg.WorkspaceID)

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	collabService := rowblock.NewLocalCollabService(store, uid, workspaceID, cfg.ClientID)
	loader := rowblock.NewLoader(collabService, broker)

	metricsCollector := metrics.NewCollector(store, uid, loader.Cache().Len)
	metricsCollector.Start()
	defer metricsCollector.Stop()

	healthServer := api.NewHealthServer(store)
	go func() {
		if err := healthServer.Start(cfg.MetricsAddr); err != nil {
			log.Errorf("health server exited: %v", err)
		}
	}()
	log.Info(fmt.Sprintf("health/metrics listening on %s", cfg.MetricsAddr))

	sessions := adminserver.NewSessionRegistry()
	adminSrv := adminserver.New(store, uid, workspaceID, sessions)

	stopAdminSocket, err := serveAdminSocket(cfg.AdminSocket, adminSrv)
	if err != nil {
		return fmt.Errorf("start admin socket: %w", err)
	}
	defer stopAdminSocket()

	var stopAdminTCP func()
	if cfg.AdminAddr != "" {
		stopAdminTCP, err = serveAdminTCP(cfg.AdminAddr, adminSrv)
		if err != nil {
			return fmt.Errorf("start admin tcp: %w", err)
		}
		defer stopAdminTCP()
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", cfg.ListenAddr, err)
	}
	defer listener.Close()
	log.Info(fmt.Sprintf("sync listener on %s", cfg.ListenAddr))

	go acceptSyncConns(listener, store, uid, workspaceID, cfg.ClientID, sessions)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	return nil
}

// serveAdminSocket serves internal/adminpb over a Unix domain socket
// gated by pkg/api.ReadOnlyInterceptor, the local-process-only
// read-only admin channel.
func serveAdminSocket(path string, srv adminpb.Server) (func(), error) {
	_ = os.Remove(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(api.ReadOnlyInterceptor()))
	adminpb.RegisterAdminServiceServer(s, srv)
	go func() {
		if err := s.Serve(listener); err != nil {
			log.Errorf("admin socket server exited: %v", err)
		}
	}()
	log.Info(fmt.Sprintf("admin (read-only) gRPC listening on unix:%s", path))
	return func() {
		s.GracefulStop()
		_ = os.Remove(path)
	}, nil
}

// serveAdminTCP serves the full read-write admin surface over TCP; it
// carries no ReadOnlyInterceptor, so it must only be bound to a trusted
// address.
func serveAdminTCP(addr string, srv adminpb.Server) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := grpc.NewServer()
	adminpb.RegisterAdminServiceServer(s, srv)
	go func() {
		if err := s.Serve(listener); err != nil {
			log.Errorf("admin tcp server exited: %v", err)
		}
	}()
	log.Info(fmt.Sprintf("admin (read-write) gRPC listening on %s", addr))
	return func() { s.GracefulStop() }, nil
}

// acceptSyncConns accepts sync protocol connections. Each connection
// begins with a newline-terminated object id naming the CRDT document
// to sync, followed by the varint-framed syncproto.Message stream;
// the object id preamble lets one TCP listener multiplex sessions for
// many documents, which the message taxonomy itself (spec §4.5.1)
// does not carry.
func acceptSyncConns(listener net.Listener, store *persistence.Store, uid, workspaceID []byte, clientID uint64, sessions *adminserver.SessionRegistry) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Errorf("sync listener accept failed: %v", err)
			continue
		}
		go handleSyncConn(conn, store, uid, workspaceID, clientID, sessions)
	}
}

func handleSyncConn(conn net.Conn, store *persistence.Store, uid, workspaceID []byte, clientID uint64, sessions *adminserver.SessionRegistry) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		log.Errorf("sync conn: reading object id preamble failed: %v", err)
		return
	}
	objectID := strings.TrimSpace(line)
	if objectID == "" {
		log.Error("sync conn: rejecting connection with empty object id")
		return
	}

	doc := crdt.NewDoc(clientID, objectID)
	if _, err := store.LoadDoc(uid, workspaceID, []byte(objectID), doc); err != nil {
		if !errors.Is(err, persistence.ErrDocNotFound) {
			log.WithDocID(objectID).Error().Err(err).Msg("sync conn: load doc failed")
			return
		}
		if err := store.CreateNewDoc(uid, workspaceID, []byte(objectID), doc); err != nil {
			log.WithDocID(objectID).Error().Err(err).Msg("sync conn: create doc failed")
			return
		}
	}

	deviceID := uuid.NewString()
	origin := crdt.ClientOrigin(clientID, deviceID)
	transport := syncproto.NewConnTransportWithReader(conn, reader, 0)
	session := syncproto.NewSession(syncproto.RoleServer, origin, doc, transport, nil)
	defer session.Close()

	sessionID := uuid.NewString()
	sessions.Register(sessionID, adminserver.SessionMeta{
		ClientID: clientID,
		DeviceID: deviceID,
		ObjectID: objectID,
		Role:     "server",
	})
	defer sessions.Unregister(sessionID)

	ctx := context.Background()
	if err := session.Handshake(ctx); err != nil {
		log.WithDocID(objectID).Error().Err(err).Msg("sync conn: handshake failed")
		return
	}
	if err := session.Serve(ctx); err != nil {
		log.WithDocID(objectID).Debug().Err(err).Msg("sync conn: session ended")
	}
}
