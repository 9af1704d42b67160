// Package server exposes the admin trigger, run status and the public
// word-of-day read endpoint over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"palavra/internal/pipeline"
	"palavra/internal/store"
)

// Pipeline is the orchestration surface the handlers need.
type Pipeline interface {
	RunToday(ctx context.Context) error
	Status() (pipeline.RunStatus, bool)
}

// WordReader serves persisted records to clients.
type WordReader interface {
	FindLanguage(ctx context.Context, code string) (*store.Language, error)
	FindWordOfDay(ctx context.Context, languageID int64, day time.Time) (*store.WordOfDay, error)
}

// Server wires the gin router.
type Server struct {
	pipe        Pipeline
	reader      WordReader
	defaultLang string
	loc         *time.Location
	log         *zap.Logger
	now         func() time.Time
}

// New creates the HTTP server frontend.
func New(pipe Pipeline, reader WordReader, defaultLang string, loc *time.Location, log *zap.Logger) *Server {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		pipe:        pipe,
		reader:      reader,
		defaultLang: defaultLang,
		loc:         loc,
		log:         log,
		now:         time.Now,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	admin := r.Group("/admin/word-of-day")
	admin.POST("/generate", s.generate)
	admin.GET("/status", s.status)

	r.GET("/api/word-of-day", s.today)

	return r
}

// generate runs the pipeline synchronously and reports the outcome.
func (s *Server) generate(c *gin.Context) {
	err := s.pipe.RunToday(c.Request.Context())
	if errors.Is(err, pipeline.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
		return
	}
	if err != nil {
		s.log.Error("admin word of day run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "word of day generated"})
}

// status reports the most recent run outcome.
func (s *Server) status(c *gin.Context) {
	st, ok := s.pipe.Status()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "no run recorded yet"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// wordResponse is the public shape of a word-of-day record.
type wordResponse struct {
	Date                 string `json:"date"`
	LanguageCode         string `json:"languageCode"`
	Word                 string `json:"word"`
	Verse                string `json:"verse"`
	DevotionalTitle      string `json:"devotionalTitle"`
	DevotionalContent    string `json:"devotionalContent"`
	DevotionalReflection string `json:"devotionalReflection"`
	PrayerTitle          string `json:"prayerTitle"`
	PrayerContent        string `json:"prayerContent"`
	PrayerDuration       string `json:"prayerDuration"`
}

// today serves the current day's record for a language.
func (s *Server) today(c *gin.Context) {
	code := c.DefaultQuery("lang", s.defaultLang)

	lang, err := s.reader.FindLanguage(c.Request.Context(), code)
	if errors.Is(err, store.ErrLanguageNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "unknown language"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	now := s.now().In(s.loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	rec, err := s.reader.FindWordOfDay(c.Request.Context(), lang.ID, day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "no word of day for today"})
		return
	}

	c.JSON(http.StatusOK, wordResponse{
		Date:                 rec.Date.Format("2006-01-02"),
		LanguageCode:         lang.Code,
		Word:                 rec.Word,
		Verse:                rec.Verse,
		DevotionalTitle:      rec.DevotionalTitle,
		DevotionalContent:    rec.DevotionalContent,
		DevotionalReflection: rec.DevotionalReflection,
		PrayerTitle:          rec.PrayerTitle,
		PrayerContent:        rec.PrayerContent,
		PrayerDuration:       rec.PrayerDuration,
	})
}
