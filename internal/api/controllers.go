package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"BlockScreener/internal/model"
	"BlockScreener/internal/recorder"
)

type HealthController struct{}

func NewHealthController() *HealthController {
	return &HealthController{}
}

func (ctrl *HealthController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", ctrl.healthCheck)
	router.HEAD("/health", ctrl.healthCheck)
}

func (ctrl *HealthController) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}

// ViewController serves the ranked view and the refresh loop controls.
type ViewController struct {
	ctl   Controller
	snaps Snapshots
	rec   recorder.Recorder
}

func NewViewController(ctl Controller, snaps Snapshots, rec recorder.Recorder) *ViewController {
	return &ViewController{ctl: ctl, snaps: snaps, rec: rec}
}

func (ctrl *ViewController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/rows", ctrl.rows)
	router.GET("/status", ctrl.status)
	router.GET("/cycles", ctrl.cycles)

	control := router.Group("", RateLimiter(2, 5))
	control.POST("/refresh", ctrl.refresh)
	control.POST("/pause", ctrl.pause)
	control.POST("/resume", ctrl.resume)
}

// rows returns the latest snapshot. ?limit=n truncates, ?pinned=true keeps
// only pinned rows.
func (ctrl *ViewController) rows(c *gin.Context) {
	snap := ctrl.snaps.Latest()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, fail("no snapshot yet"))
		return
	}
	rows := snap.Rows
	if c.Query("pinned") == "true" {
		pinned := make([]model.RankedRow, 0, len(rows))
		for _, r := range rows {
			if r.Annotation.Pinned {
				pinned = append(pinned, r)
			}
		}
		rows = pinned
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, fail("limit must be a non-negative integer"))
			return
		}
		if n < len(rows) {
			rows = rows[:n]
		}
	}
	c.JSON(http.StatusOK, ok(gin.H{
		"id":           snap.ID,
		"block":        snap.Block,
		"generated_at": snap.GeneratedAt,
		"stats":        snap.Stats,
		"rows":         rows,
	}, ""))
}

func (ctrl *ViewController) status(c *gin.Context) {
	c.JSON(http.StatusOK, ok(ctrl.ctl.Status(), ""))
}

func (ctrl *ViewController) cycles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	events, err := ctrl.rec.RecentCycles(limit)
	if err != nil {
		log.Error().Err(err).Msg("query cycles")
		c.JSON(http.StatusInternalServerError, fail("query cycles failed"))
		return
	}
	c.JSON(http.StatusOK, ok(events, ""))
}

func (ctrl *ViewController) refresh(c *gin.Context) {
	if ctrl.ctl.Refresh("http") {
		c.JSON(http.StatusAccepted, ok(gin.H{"started": true}, "refresh started"))
		return
	}
	c.JSON(http.StatusConflict, Response{Success: false, Data: gin.H{"started": false}, Error: "refresh already in progress"})
}

func (ctrl *ViewController) pause(c *gin.Context) {
	changed := ctrl.ctl.Pause("http")
	c.JSON(http.StatusOK, ok(gin.H{"changed": changed, "state": ctrl.ctl.Status().State}, ""))
}

func (ctrl *ViewController) resume(c *gin.Context) {
	changed := ctrl.ctl.Resume("http")
	c.JSON(http.StatusOK, ok(gin.H{"changed": changed, "state": ctrl.ctl.Status().State}, ""))
}

// AnnotationController edits per-symbol labels and pins.
type AnnotationController struct {
	notes Annotations
	ctl   Controller
	rec   recorder.Recorder
}

func NewAnnotationController(notes Annotations, ctl Controller, rec recorder.Recorder) *AnnotationController {
	return &AnnotationController{notes: notes, ctl: ctl, rec: rec}
}

func (ctrl *AnnotationController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/annotations", ctrl.list)
	router.GET("/annotations/:code", ctrl.get)
	router.PUT("/annotations/:code", ctrl.update)
	router.DELETE("/annotations/:code", ctrl.remove)
}

type annotationPatch struct {
	Text   *string `json:"text"`
	Pinned *bool   `json:"pinned"`
}

func (ctrl *AnnotationController) list(c *gin.Context) {
	c.JSON(http.StatusOK, ok(ctrl.notes.All(), ""))
}

func (ctrl *AnnotationController) get(c *gin.Context) {
	code := c.Param("code")
	a, found := ctrl.notes.Get(code)
	if !found {
		c.JSON(http.StatusNotFound, fail("annotation not found"))
		return
	}
	c.JSON(http.StatusOK, ok(a, ""))
}

// update applies a partial edit. A change to the pin flag triggers an
// immediate refresh so the new order is visible.
func (ctrl *AnnotationController) update(c *gin.Context) {
	code := c.Param("code")
	if !validCode(code) {
		c.JSON(http.StatusBadRequest, fail("code must be 6 digits"))
		return
	}
	var patch annotationPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid body: "+err.Error()))
		return
	}
	if patch.Text == nil && patch.Pinned == nil {
		c.JSON(http.StatusBadRequest, fail("nothing to update"))
		return
	}

	cur, _ := ctrl.notes.Get(code)
	next := cur
	if patch.Text != nil {
		next.Text = *patch.Text
	}
	if patch.Pinned != nil {
		next.Pinned = *patch.Pinned
	}
	saved, err := ctrl.notes.Put(code, next)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("save annotation")
		c.JSON(http.StatusInternalServerError, fail("save annotation failed"))
		return
	}

	action := "SET"
	if saved.Pinned != cur.Pinned {
		action = "PIN"
	}
	ctrl.record(&recorder.AnnotationEvent{Code: code, Action: action, Text: saved.Text, Pinned: saved.Pinned})
	if action == "PIN" {
		ctrl.ctl.Refresh("http")
	}
	c.JSON(http.StatusOK, ok(saved, ""))
}

func (ctrl *AnnotationController) remove(c *gin.Context) {
	code := c.Param("code")
	prev, found := ctrl.notes.Get(code)
	if !found {
		c.JSON(http.StatusNotFound, fail("annotation not found"))
		return
	}
	if err := ctrl.notes.Delete(code); err != nil {
		log.Error().Err(err).Str("code", code).Msg("delete annotation")
		c.JSON(http.StatusInternalServerError, fail("delete annotation failed"))
		return
	}
	ctrl.record(&recorder.AnnotationEvent{Code: code, Action: "DELETE"})
	if prev.Pinned {
		ctrl.ctl.Refresh("http")
	}
	c.JSON(http.StatusOK, ok(nil, "deleted"))
}

func (ctrl *AnnotationController) record(evt *recorder.AnnotationEvent) {
	if err := ctrl.rec.RecordAnnotation(evt); err != nil {
		log.Error().Err(err).Msg("record annotation event")
	}
}

func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
