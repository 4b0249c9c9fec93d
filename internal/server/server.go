// Package server exposes statement parsing and transaction submission as a
// WebSocket endpoint for form UIs.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fireflybt/fireflybt/internal/firefly"
	"github.com/fireflybt/fireflybt/internal/importer"
	"github.com/fireflybt/fireflybt/internal/logger"
	"github.com/fireflybt/fireflybt/internal/model"
	"github.com/fireflybt/fireflybt/internal/resolver"
	"github.com/fireflybt/fireflybt/internal/submit"
)

// Server is the WebSocket bridge. Each connection processes one message at
// a time; each parse request gets a fresh resolver session so account
// changes in the ledger are picked up between statements.
type Server struct {
	ledger    firefly.Ledger
	registry  *importer.Registry
	auditRoot string
	upgrader  websocket.Upgrader
	log       zerolog.Logger
}

// New creates a Server.
func New(ledger firefly.Ledger, registry *importer.Registry, auditRoot string, log zerolog.Logger) *Server {
	return &Server{
		ledger:    ledger,
		registry:  registry,
		auditRoot: auditRoot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 20,
			WriteBufferSize: 1 << 20,
			// Form UIs are served from their own origin during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// request is one client message. Exactly one of Content or Transaction is set.
type request struct {
	Content     string             `json:"content,omitempty"`
	Format      string             `json:"format,omitempty"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
}

// parseReply answers a {content} message: the classified transactions plus
// the autocomplete lists the form needs.
type parseReply struct {
	Transactions []model.Transaction `json:"transactions"`
	Accounts     []string            `json:"accounts"`
	Categories   []string            `json:"categories"`
	Descriptions []string            `json:"descriptions"`
	Errors       []string            `json:"errors,omitempty"`
}

// submitReply answers a {transaction} message.
type submitReply struct {
	Result submit.Outcome `json:"result"`
}

type errorReply struct {
	Error string `json:"error"`
}

// ListenAndServe runs the bridge until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", addr).Msg("websocket bridge listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// HandleWS upgrades the connection and serves messages until the client
// disconnects.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.log.With().Str("conn_id", uuid.NewString()).Logger()
	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("client connected")

	ctx := logger.WithContext(r.Context(), log)

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("client closed unexpectedly")
			} else {
				log.Info().Msg("client disconnected")
			}
			return
		}

		var reply any
		switch {
		case req.Transaction != nil:
			reply = s.handleSubmit(ctx, *req.Transaction)
		case req.Content != "":
			reply = s.handleParse(ctx, req)
		default:
			reply = errorReply{Error: "message must carry either content or transaction"}
		}

		if err := conn.WriteJSON(reply); err != nil {
			log.Error().Err(err).Msg("writing reply")
			return
		}
	}
}

// handleParse parses raw statement text, resolves accounts, and gathers the
// autocomplete lists. Unresolved accounts are reported per record and do
// not fail the request.
func (s *Server) handleParse(ctx context.Context, req request) any {
	log := logger.FromContext(ctx)

	format := req.Format
	if format == "" {
		format = "bt"
	}
	parser := s.registry.Get(format)
	if parser == nil {
		return errorReply{Error: "unknown statement format: " + format}
	}

	txns, err := parser.Parse(strings.NewReader(req.Content))
	if err != nil {
		log.Error().Err(err).Msg("parsing statement")
		return errorReply{Error: err.Error()}
	}

	session, err := resolver.NewSession(ctx, s.ledger)
	if err != nil {
		log.Error().Err(err).Msg("starting resolver session")
		return errorReply{Error: err.Error()}
	}

	reply := parseReply{Transactions: txns}
	for i := range reply.Transactions {
		if err := session.Resolve(&reply.Transactions[i]); err != nil {
			reply.Errors = append(reply.Errors, err.Error())
		}
	}
	if reply.Transactions == nil {
		reply.Transactions = []model.Transaction{}
	}

	if reply.Accounts, err = session.AccountNames(ctx); err != nil {
		log.Warn().Err(err).Msg("listing accounts for autocomplete")
		reply.Accounts = []string{}
	}
	if reply.Categories, err = session.Categories(ctx); err != nil {
		log.Warn().Err(err).Msg("listing categories for autocomplete")
		reply.Categories = []string{}
	}
	if reply.Descriptions, err = session.Descriptions(ctx); err != nil {
		log.Warn().Err(err).Msg("listing descriptions for autocomplete")
		reply.Descriptions = []string{}
	}

	return reply
}

// handleSubmit stores one reviewed transaction. The record arrives with
// canonical account names already filled in by the form.
func (s *Server) handleSubmit(ctx context.Context, txn model.Transaction) any {
	submitter := submit.NewSubmitter(s.ledger, s.auditRoot)
	return submitReply{Result: submitter.Submit(ctx, txn)}
}
