package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/ButyrinIA/yatube/internal/api"
	"github.com/ButyrinIA/yatube/internal/config"
	"github.com/ButyrinIA/yatube/internal/storage"
)

type Server struct {
	cfg     *config.Config
	storage storage.Storage
	tokens  *TokenManager
	handler http.Handler
}

func New(cfg *config.Config, storage storage.Storage) *Server {
	s := &Server{
		cfg:     cfg,
		storage: storage,
		tokens:  NewTokenManager(cfg.Auth.Secret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL),
	}

	mux := http.NewServeMux()
	api.New(storage, api.NewCommentHub()).Register(mux)
	mux.HandleFunc("POST /api/v1/users/{$}", s.signup)
	mux.HandleFunc("POST /api/v1/jwt/create/{$}", s.createToken)
	mux.HandleFunc("POST /api/v1/jwt/refresh/{$}", s.refreshToken)
	mux.HandleFunc("POST /api/v1/jwt/verify/{$}", s.verifyToken)

	s.handler = logRequests(s.authenticate(api.Loaders(storage, mux)))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run обслуживает запросы до отмены ctx, затем дожидается активных запросов
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Сервер слушает порт %s", s.cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Остановка сервера")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
