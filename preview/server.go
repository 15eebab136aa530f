package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/nvr-ai/go-videodiff/images"
	"github.com/nvr-ai/go-videodiff/logger"
	"github.com/nvr-ai/go-videodiff/motion"
	"github.com/nvr-ai/go-videodiff/record"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

const (
	// DefaultMaxWidth is the widest preview frame sent to browsers.
	DefaultMaxWidth = 640
	// DefaultQuality is the JPEG quality of preview frames.
	DefaultQuality = 80
)

// Options configures a preview Server.
type Options struct {
	// Addr is the listen address, for example "127.0.0.1:8080".
	Addr string
	// MaxWidth downscales wider frames before encoding; <= 0 selects DefaultMaxWidth.
	MaxWidth int
	// Quality is the JPEG quality, 1-100; <= 0 selects DefaultQuality.
	Quality int
}

// Status is the JSON document served at /api/status.
type Status struct {
	SessionID     string  `json:"session_id"`
	Frames        int     `json:"frames"`
	Records       int     `json:"records"`
	LastTimestamp float64 `json:"last_timestamp"`
	LastPercent   float64 `json:"last_percent"`
	StreamClients int     `json:"stream_clients"`
	FeedClients   int     `json:"feed_clients"`
	Done          bool    `json:"done"`
	Uptime        string  `json:"uptime"`
}

// Server is a motion.Viewer that publishes previews over HTTP:
//
//	GET /stream/original  MJPEG stream of the decoded frames
//	GET /stream/diff      MJPEG stream of the binarized diff
//	GET /snapshot/{name}  latest original or diff frame, ?format=jpeg|png|webp
//	GET /api/records      websocket feed of JSON records
//	GET /api/status       run status
//	GET /api/health       liveness
type Server struct {
	opts     Options
	router   *mux.Router
	upgrader websocket.Upgrader
	log      zerolog.Logger
	started  time.Time

	original *stream
	diff     *stream

	feedsMu sync.RWMutex
	feeds   map[chan record.Result]struct{}
	done    bool

	statusMu sync.RWMutex
	status   Status

	httpMu   sync.Mutex
	http     *http.Server
	listener net.Listener
}

// NewServer creates a preview server. It does not listen until Start.
func NewServer(opts Options) *Server {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = DefaultMaxWidth
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}

	s := &Server{
		opts:   opts,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log:      *logger.WithComponent("preview"),
		started:  time.Now(),
		original: newStream(),
		diff:     newStream(),
		feeds:    make(map[chan record.Result]struct{}),
		status:   Status{SessionID: uuid.NewString()},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/stream/original", s.handleStream(s.original)).Methods("GET")
	s.router.HandleFunc("/stream/diff", s.handleStream(s.diff)).Methods("GET")
	s.router.HandleFunc("/snapshot/{name:original|diff}", s.handleSnapshot).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/records", s.handleRecords)
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on Options.Addr and serves in the background.
func (s *Server) Start() error {
	s.httpMu.Lock()
	defer s.httpMu.Unlock()

	if s.http != nil {
		return errors.New("preview server already running")
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.opts.Addr)
	}
	s.listener = listener
	s.http = &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("preview server stopped")
		}
	}()

	s.log.Info().Str("addr", listener.Addr().String()).Msg("preview server listening")
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	s.httpMu.Lock()
	defer s.httpMu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Shutdown disconnects every client and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.original.closeAll()
	s.diff.closeAll()
	s.closeFeeds()

	s.httpMu.Lock()
	srv := s.http
	s.http = nil
	s.listener = nil
	s.httpMu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Show implements motion.Viewer. The latest frames are kept for snapshots and
// encoded for the streams that have clients.
func (s *Server) Show(view motion.View) error {
	s.statusMu.Lock()
	s.status.Frames++
	s.status.LastTimestamp = view.Timestamp
	s.status.LastPercent = view.ChangedPercent
	s.statusMu.Unlock()

	if view.Original == nil && view.Diff == nil {
		return nil
	}

	frames := Annotate(view)
	defer frames.Close()

	if err := s.publish(s.original, frames.Original); err != nil {
		return errors.Wrap(err, "original preview")
	}
	if err := s.publish(s.diff, frames.Diff); err != nil {
		return errors.Wrap(err, "diff preview")
	}
	return nil
}

func (s *Server) publish(st *stream, frame gocv.Mat) error {
	if frame.Empty() {
		return nil
	}
	img, err := images.MatToImage(frame, s.opts.MaxWidth)
	if err != nil {
		return err
	}
	st.setLatest(img)

	if st.clients() == 0 {
		return nil
	}
	encoded, err := images.Encode(img, images.FormatJPEG, s.opts.Quality)
	if err != nil {
		return err
	}
	st.broadcast(encoded.Data)
	return nil
}

// Records returns a sink forwarding every record to the websocket clients.
// Closing it ends the feed; it never fails.
func (s *Server) Records() record.Sink {
	return &feedSink{s: s}
}

type feedSink struct {
	s *Server
}

func (f *feedSink) Write(r record.Result) error {
	f.s.statusMu.Lock()
	f.s.status.Records++
	f.s.statusMu.Unlock()

	f.s.feedsMu.RLock()
	defer f.s.feedsMu.RUnlock()
	for ch := range f.s.feeds {
		select {
		case ch <- r:
		default:
			// Slow client, drop the record.
		}
	}
	return nil
}

func (f *feedSink) Close() error {
	f.s.statusMu.Lock()
	f.s.status.Done = true
	f.s.statusMu.Unlock()
	f.s.closeFeeds()
	return nil
}

func (s *Server) closeFeeds() {
	s.feedsMu.Lock()
	defer s.feedsMu.Unlock()
	for ch := range s.feeds {
		close(ch)
	}
	s.feeds = make(map[chan record.Result]struct{})
	s.done = true
}

// Status returns a snapshot of the run status.
func (s *Server) Status() Status {
	s.statusMu.RLock()
	status := s.status
	s.statusMu.RUnlock()

	status.StreamClients = s.original.clients() + s.diff.clients()
	s.feedsMu.RLock()
	status.FeedClients = len(s.feeds)
	s.feedsMu.RUnlock()
	status.Uptime = time.Since(s.started).Round(time.Millisecond).String()
	return status
}

func (s *Server) handleStream(st *stream) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		frames, count := st.add()
		defer func() {
			remaining := st.remove(frames)
			s.log.Debug().Str("path", r.URL.Path).Int("remaining", remaining).Msg("stream client disconnected")
		}()
		s.log.Debug().Str("path", r.URL.Path).Int("total", count).Msg("stream client connected")

		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		if flusher != nil {
			flusher.Flush()
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case data, ok := <-frames:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
					return
				}
				if _, err := w.Write(data); err != nil {
					return
				}
				if _, err := fmt.Fprint(w, "\r\n"); err != nil {
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
	}
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	// Register before upgrading so a dialer that has connected never misses a record.
	feed := make(chan record.Result, 64)
	s.feedsMu.Lock()
	if s.done {
		s.feedsMu.Unlock()
		http.Error(w, "run finished", http.StatusGone)
		return
	}
	s.feeds[feed] = struct{}{}
	s.feedsMu.Unlock()

	unregister := func() {
		s.feedsMu.Lock()
		defer s.feedsMu.Unlock()
		if _, ok := s.feeds[feed]; ok {
			delete(s.feeds, feed)
			close(feed)
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		unregister()
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	defer unregister()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case result, ok := <-feed:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
				return
			}
			if err := conn.WriteJSON(result); err != nil {
				s.log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	st := s.original
	if mux.Vars(r)["name"] == "diff" {
		st = s.diff
	}

	format, ok := images.ParseFormat(r.URL.Query().Get("format"))
	if !ok {
		http.Error(w, "unsupported format", http.StatusBadRequest)
		return
	}

	img := st.getLatest()
	if img == nil {
		http.Error(w, "no frame yet", http.StatusNotFound)
		return
	}

	encoded, err := images.Encode(img, format, s.opts.Quality)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(encoded.Data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

// stream fans JPEG frames out to MJPEG clients and keeps the latest frame.
// Slow clients skip frames.
type stream struct {
	mu     sync.RWMutex
	subs   map[chan []byte]struct{}
	latest image.Image
}

func (st *stream) setLatest(img image.Image) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.latest = img
}

func (st *stream) getLatest() image.Image {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.latest
}

func newStream() *stream {
	return &stream{subs: make(map[chan []byte]struct{})}
}

func (st *stream) add() (chan []byte, int) {
	ch := make(chan []byte, 2)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.subs[ch] = struct{}{}
	return ch, len(st.subs)
}

func (st *stream) remove(ch chan []byte) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.subs[ch]; ok {
		delete(st.subs, ch)
		close(ch)
	}
	return len(st.subs)
}

func (st *stream) clients() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.subs)
}

func (st *stream) broadcast(data []byte) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for ch := range st.subs {
		select {
		case ch <- data:
		default:
		}
	}
}

func (st *stream) closeAll() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for ch := range st.subs {
		close(ch)
	}
	st.subs = make(map[chan []byte]struct{})
}
