package sync

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/regsalud/reps-sync/internal/handler"
	"github.com/regsalud/reps-sync/internal/middleware"
	"github.com/regsalud/reps-sync/internal/model"
	syncservice "github.com/regsalud/reps-sync/internal/service/sync"
	"github.com/regsalud/reps-sync/pkg/lock"
	"github.com/regsalud/reps-sync/pkg/logger"
)

// Handler exposes the synchronization pipeline over HTTP. Run results are
// kept in a TTL cache so callers can re-fetch a recent report by id.
type Handler struct {
	service *syncservice.Service
	locker  lock.Locker
	results *gocache.Cache
	lockTTL time.Duration
	logger  *logger.Logger
}

func NewHandler(service *syncservice.Service, locker lock.Locker, lockTTL, resultTTL time.Duration, l *logger.Logger) *Handler {
	return &Handler{
		service: service,
		locker:  locker,
		results: gocache.New(resultTTL, 2*resultTTL),
		lockTTL: lockTTL,
		logger:  l.WithComponent("sync-handler"),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	orgs := r.Group("/organizations/:id")
	{
		orgs.POST("/sync", h.RunSync)
		orgs.GET("/sync-runs/:runID", h.GetSyncRun)
	}
}

type runSyncForm struct {
	CreateBackup  bool `form:"create_backup"`
	ForceRecreate bool `form:"force_recreate"`
}

func (h *Handler) RunSync(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid organization ID"))
		return
	}

	var form runSyncForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	opts := syncservice.Options{
		CreateBackup:  form.CreateBackup,
		ForceRecreate: form.ForceRecreate,
		ActingUser:    middleware.ActingUser(c),
	}

	facFile, facName, err := openFormFile(c, "facilities_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if facFile != nil {
		defer facFile.Close()
		opts.FacilitiesFile = facFile
		opts.FacilitiesName = facName
	}

	svcFile, svcName, err := openFormFile(c, "services_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if svcFile != nil {
		defer svcFile.Close()
		opts.ServicesFile = svcFile
		opts.ServicesName = svcName
	}

	if opts.FacilitiesFile == nil && opts.ServicesFile == nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("at least one file must be provided"))
		return
	}

	// One run at a time per organization: the pipeline's backup/rollback
	// assumes nothing else mutates the organization mid-run.
	release, err := h.locker.Acquire(c.Request.Context(), "sync:org:"+orgID.String(), h.lockTTL)
	if errors.Is(err, lock.ErrAlreadyLocked) {
		c.JSON(http.StatusConflict, handler.NewErrorResponse("a synchronization is already running for this organization"))
		return
	}
	if err != nil {
		h.logger.Error(err, "failed to acquire organization lock")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to acquire organization lock"))
		return
	}
	defer func() {
		if err := release(c.Request.Context()); err != nil {
			h.logger.Error(err, "failed to release organization lock")
		}
	}()

	run, err := h.service.Run(c.Request.Context(), orgID, opts)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	h.results.SetDefault(run.ID.String(), run)

	status := http.StatusOK
	if run.Status == model.SyncRunCriticalError {
		status = http.StatusInternalServerError
	}
	c.JSON(status, handler.NewSuccessResponse(run))
}

func (h *Handler) GetSyncRun(c *gin.Context) {
	if _, err := uuid.Parse(c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid organization ID"))
		return
	}
	runID, err := uuid.Parse(c.Param("runID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid run ID"))
		return
	}

	cached, ok := h.results.Get(runID.String())
	if !ok {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("sync run not found"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cached.(*model.SyncRun)))
}

func openFormFile(c *gin.Context, field string) (multipart.File, string, error) {
	fh, err := c.FormFile(field)
	if err == http.ErrMissingFile || errors.Is(err, http.ErrMissingFile) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	return f, fh.Filename, nil
}
