package controllers

import (
	"errors"
	"math/rand"
	"net/http"

	"gramaalert-be/middlewares"
	"gramaalert-be/notices"
	"gramaalert-be/views"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Placeholder locations offered instead of reverse geocoding.
var suggestedLocations = []string{
	"Main Road, Near Panchayat Office",
	"Gandhi Chowk, Market Area",
	"Temple Street, Near Hanuman Temple",
	"School Road, Near Primary School",
	"Bus Stand, Central Area",
	"Village Square, Community Center",
	"Gurudwara Road, Near Religious Center",
	"Hospital Road, Near PHC",
}

// ViewController serves navigation decisions, pending notices and the
// location helper.
type ViewController struct {
	notices notices.Queue
	log     *zap.Logger
	pick    func(n int) int
}

func NewViewController(queue notices.Queue, log *zap.Logger) *ViewController {
	return &ViewController{notices: queue, log: log, pick: rand.Intn}
}

// Navigate reports where the caller lands when asking for a view.
func (vc *ViewController) Navigate(c *gin.Context) {
	target, err := views.Parse(c.Param("view"))
	if errors.Is(err, views.ErrUnknownView) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown view"})
		return
	}
	sess := middlewares.CurrentSession(c)
	decision := views.Navigate(sess, target)
	if !decision.Allowed && sess.SignedIn() {
		pushNotice(c, vc.notices, vc.log, sess.UID, notices.Error, decision.Notice)
	}
	c.JSON(http.StatusOK, decision)
}

// Notices drains the caller's pending notices.
func (vc *ViewController) Notices(c *gin.Context) {
	sess := middlewares.CurrentSession(c)
	if !sess.SignedIn() {
		c.JSON(http.StatusOK, gin.H{"notices": []notices.Notice{}})
		return
	}
	list, err := vc.notices.Drain(c.Request.Context(), sess.UID)
	if err != nil {
		vc.log.Error("Error reading notices", zap.String("uid", sess.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": list})
}

// SuggestLocation returns one of the placeholder locations.
func (vc *ViewController) SuggestLocation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"location": suggestedLocations[vc.pick(len(suggestedLocations))],
		"message":  "Location detected!",
	})
}

// pushNotice queues a notice for key; failures are only logged.
func pushNotice(c *gin.Context, q notices.Queue, log *zap.Logger, key string, kind notices.Kind, msg string) {
	if q == nil || key == "" {
		return
	}
	if err := q.Push(c.Request.Context(), key, notices.Notice{Kind: kind, Message: msg}); err != nil {
		log.Warn("notice push failed", zap.String("key", key), zap.Error(err))
	}
}
