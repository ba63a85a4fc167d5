package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/justestif/go-movie-watchlist/internal/auth"
	"github.com/justestif/go-movie-watchlist/internal/catalog"
	"github.com/justestif/go-movie-watchlist/internal/db"
	"github.com/justestif/go-movie-watchlist/internal/watchlist"
)

const (
	appTitle = "Movie Watchlist"

	msgCreated        = "Item created."
	msgUpdated        = "Item updated."
	msgDeleted        = "Item deleted."
	msgInvalidInput   = "Invalid input."
	msgTitleTooLong   = "Title is too long."
	msgLoggedIn       = "Login success."
	msgLoggedOut      = "Goodbye."
	msgBadCredentials = "Invalid username or password."
	msgThrottled      = "Too many login attempts. Try again later."

	healthCheckTimeout = 2 * time.Second
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	accounts     *auth.Store
	catalog      *catalog.Mirror
	watches      *watchlist.Service
	sessions     SessionManager
	flashes      *flashes
	templates    *Templates
	limiter      *loginLimiter
	health       Pinger
	imageBaseURL string
	logger       *log.Logger
}

// Home handles the index page (GET /). It refreshes the trending mirror on
// every view; when the refresh fails the previous mirror is shown.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stale := false
	if n, err := h.catalog.Refresh(ctx); err != nil {
		h.logger.Warn("refreshing trending movies", "err", err)
		stale = true
	} else {
		h.logger.Debug("refreshed trending movies", "count", n)
	}

	movies, err := h.catalog.List(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	entries, err := h.watches.List(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	var owner string
	account, err := h.accounts.Find(ctx)
	switch {
	case err == nil:
		owner = account.Username
	case !errors.Is(err, auth.ErrNoAccount):
		h.serverError(w, r, err)
		return
	}

	data := IndexPageData{
		PageData:      h.pageData(w, r, appTitle),
		Owner:         owner,
		Trending:      h.movieData(movies),
		TrendingStale: stale,
		Watches:       watchData(entries),
	}
	h.render(w, r, http.StatusOK, "index", data)
}

// Create adds a watch entry (POST /).
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	_, err := h.watches.Create(r.Context(), r.PostFormValue("title"))
	if errors.Is(err, watchlist.ErrInvalidTitle) {
		h.redirectWithFlash(w, r, "/", FlashError, titleMessage(err))
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.redirectWithFlash(w, r, "/", FlashSuccess, msgCreated)
}

// EditForm renders the edit form for a watch entry (GET /watch/edit/{id}).
func (h *Handlers) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := watchID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	entry, err := h.watches.Get(r.Context(), id)
	if errors.Is(err, watchlist.ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	data := EditPageData{
		PageData: h.pageData(w, r, "Edit "+entry.Title),
		Watch:    WatchData{ID: entry.ID, Title: entry.Title},
	}
	h.render(w, r, http.StatusOK, "edit", data)
}

// EditSubmit updates a watch entry (POST /watch/edit/{id}).
func (h *Handlers) EditSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := watchID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	_, err := h.watches.Update(r.Context(), id, r.PostFormValue("title"))
	switch {
	case errors.Is(err, watchlist.ErrNotFound):
		h.NotFound(w, r)
		return
	case errors.Is(err, watchlist.ErrInvalidTitle):
		h.redirectWithFlash(w, r, editPath(id), FlashError, titleMessage(err))
		return
	case err != nil:
		h.serverError(w, r, err)
		return
	}

	h.redirectWithFlash(w, r, "/", FlashSuccess, msgUpdated)
}

// Delete removes a watch entry (POST /watch/delete/{id}).
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := watchID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	err := h.watches.Delete(r.Context(), id)
	if errors.Is(err, watchlist.ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.redirectWithFlash(w, r, "/", FlashSuccess, msgDeleted)
}

// LoginForm renders the login form (GET /login).
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	data := LoginPageData{PageData: h.pageData(w, r, "Login")}
	h.render(w, r, http.StatusOK, "login", data)
}

// Login checks credentials and starts a session (POST /login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := r.PostFormValue("username")

	if !h.limiter.Allow(r) {
		h.logger.Warn("login throttled", "remote", r.RemoteAddr)
		data := LoginPageData{
			PageData: h.pageData(w, r, "Login"),
			Username: username,
			Error:    msgThrottled,
		}
		h.render(w, r, http.StatusTooManyRequests, "login", data)
		return
	}

	account, err := h.accounts.Authenticate(ctx, username, r.PostFormValue("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.logger.Info("login failed", "remote", r.RemoteAddr)
		data := LoginPageData{
			PageData: h.pageData(w, r, "Login"),
			Username: username,
			Error:    msgBadCredentials,
		}
		h.render(w, r, http.StatusOK, "login", data)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	if previous := sessionFromContext(ctx); previous != nil {
		if err := h.sessions.Delete(ctx, previous.ID); err != nil {
			h.logger.Warn("ending previous session", "err", err)
		}
	}

	session, err := h.sessions.Create(ctx, account)
	if err != nil {
		h.serverError(w, r, fmt.Errorf("creating session: %w", err))
		return
	}
	if err := h.sessions.SetCookie(w, session); err != nil {
		h.serverError(w, r, fmt.Errorf("signing session cookie: %w", err))
		return
	}

	h.logger.Info("login succeeded", "account", account.ID)
	h.redirectWithFlash(w, r, "/", FlashSuccess, msgLoggedIn)
}

// Logout ends the session (GET /logout). Ending an absent session is a no-op.
// When the session cannot be deleted the caller stays logged in and sees an
// error page.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := sessionFromContext(r.Context()); session != nil {
		if err := h.sessions.Delete(r.Context(), session.ID); err != nil {
			h.serverError(w, r, err)
			return
		}
	}

	h.sessions.ClearCookie(w)
	h.redirectWithFlash(w, r, "/", FlashInfo, msgLoggedOut)
}

// Health reports whether the store is reachable (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := h.health.Ping(ctx); err != nil {
		h.logger.Error("health check failed", "err", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unavailable\n"))
		return
	}
	_, _ = w.Write([]byte("ok\n"))
}

// NotFound renders the not-found page with a 404 status.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	data := h.pageData(w, r, "Not Found")
	h.render(w, r, http.StatusNotFound, "notfound", data)
}

// ============================================================================
// Helper Functions
// ============================================================================

// pageData builds the common page fields and consumes any pending flash.
func (h *Handlers) pageData(w http.ResponseWriter, r *http.Request, title string) PageData {
	data := PageData{
		Title:       title,
		Flash:       h.flashes.Pop(w, r),
		CurrentPath: r.URL.Path,
	}
	if session := sessionFromContext(r.Context()); session != nil {
		data.User = &UserData{Name: session.Username}
	}
	return data
}

// render executes page into a buffer so a template failure never leaves a
// half-written response.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.templates.Render(&buf, page, data); err != nil {
		h.logger.Error("rendering template", "page", page, "err", err, "request_id", middleware.GetReqID(r.Context()))
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err, "request_id", middleware.GetReqID(r.Context()))
	data := h.pageData(w, r, "Something went wrong")
	h.render(w, r, http.StatusInternalServerError, "error", data)
}

func (h *Handlers) redirectWithFlash(w http.ResponseWriter, r *http.Request, to, typ, message string) {
	if err := h.flashes.Set(w, typ, message); err != nil {
		h.logger.Error("setting flash", "err", err)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *Handlers) movieData(movies []db.TrendingMovie) []MovieData {
	out := make([]MovieData, len(movies))
	for i, m := range movies {
		out[i] = MovieData{
			Rank:        m.Rank,
			Title:       m.Title,
			ReleaseDate: m.ReleaseDate,
			PosterURL:   h.posterURL(m.PosterPath),
			TMDBID:      m.TMDBID,
			FetchedAt:   m.FetchedAt,
		}
	}
	return out
}

func (h *Handlers) posterURL(posterPath string) string {
	if posterPath == "" || h.imageBaseURL == "" {
		return ""
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(posterPath, "/")
}

func watchData(entries []db.WatchEntry) []WatchData {
	out := make([]WatchData, len(entries))
	for i, e := range entries {
		out[i] = WatchData{ID: e.ID, Title: e.Title}
	}
	return out
}

// watchID parses the {id} route parameter.
func watchID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func editPath(id uint) string {
	return "/watch/edit/" + strconv.FormatUint(uint64(id), 10)
}

func titleMessage(err error) string {
	if errors.Is(err, watchlist.ErrTitleTooLong) {
		return msgTitleTooLong
	}
	return msgInvalidInput
}
