package desk

import (
	"errors"
	"net/http"
	"strings"

	"bitbucket.org/crgw/rental-desk/internal/booking"
	"bitbucket.org/crgw/rental-desk/internal/controller"
	"bitbucket.org/crgw/rental-desk/internal/tools/responding"
	"bitbucket.org/crgw/rental-desk/internal/tools/slowlog"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type QueryParams struct {
	Query string `json:"query"`
}

type SelectionParams struct {
	VehicleId string `json:"vehicleId" binding:"required"`
}

// DraftParams carries only the fields being edited.
type DraftParams struct {
	StartDate       *string `json:"startDate"`
	EndDate         *string `json:"endDate"`
	PickupLocation  *string `json:"pickupLocation"`
	DropoffLocation *string `json:"dropoffLocation"`
}

func (p DraftParams) edits() []edit {
	edits := []edit{}
	for _, e := range []edit{
		{booking.FieldStartDate, p.StartDate},
		{booking.FieldEndDate, p.EndDate},
		{booking.FieldPickupLocation, p.PickupLocation},
		{booking.FieldDropoffLocation, p.DropoffLocation},
	} {
		if e.value != nil {
			edits = append(edits, e)
		}
	}
	return edits
}

type edit struct {
	field booking.Field
	value *string
}

func bearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func RegisterRoutes(router *gin.Engine, registry *Registry) {
	router.POST("/sessions", func(ctx *gin.Context) {
		logger := ctx.MustGet("logger").(*zerolog.Logger)
		slowLog := slowlog.CreateLogger(logger, registry.dependencies.SlowThreshold)

		slowLog.Start("open-session")
		s, err := registry.Open(ctx.Request.Context(), bearerToken(ctx.GetHeader("Authorization")))
		slowLog.Stop("open-session")
		if err != nil {
			responding.HandleError(ctx, http.StatusInternalServerError, "Failed to open view session", err)
			return
		}

		ctx.JSON(http.StatusCreated, s.View(ctx.Request.Context()))
	})

	group := router.Group(
		"/sessions/:id",
		PrepareSession(registry),
		TapLogger,
	)

	group.GET("", func(ctx *gin.Context) {
		s := ctx.MustGet(SessionKey).(*Session)
		ctx.JSON(http.StatusOK, s.View(ctx.Request.Context()))
	})

	group.PUT("/query",
		PrepareParams(QueryParams{}),
		func(ctx *gin.Context) {
			s := ctx.MustGet(SessionKey).(*Session)
			params := ctx.MustGet(ParamsKey).(*QueryParams)

			s.controller.SetQuery(params.Query)

			ctx.JSON(http.StatusOK, s.View(ctx.Request.Context()))
		},
	)

	group.POST("/selection",
		PrepareParams(SelectionParams{}),
		func(ctx *gin.Context) {
			s := ctx.MustGet(SessionKey).(*Session)
			params := ctx.MustGet(ParamsKey).(*SelectionParams)

			if err := s.controller.Select(params.VehicleId); err != nil {
				responding.HandleError(ctx, http.StatusNotFound, "Vehicle not in catalog", err)
				return
			}

			ctx.JSON(http.StatusOK, s.View(ctx.Request.Context()))
		},
	)

	group.PATCH("/draft",
		PrepareParams(DraftParams{}),
		func(ctx *gin.Context) {
			s := ctx.MustGet(SessionKey).(*Session)
			params := ctx.MustGet(ParamsKey).(*DraftParams)

			for _, e := range params.edits() {
				if err := s.controller.SetField(e.field, *e.value); err != nil {
					responding.HandleError(ctx, http.StatusBadRequest, "Invalid "+string(e.field), err)
					return
				}
			}

			ctx.JSON(http.StatusOK, s.View(ctx.Request.Context()))
		},
	)

	group.POST("/submit", func(ctx *gin.Context) {
		s := ctx.MustGet(SessionKey).(*Session)
		logger := ctx.MustGet("logger").(*zerolog.Logger)
		slowLog := slowlog.CreateLogger(logger, registry.dependencies.SlowThreshold)

		slowLog.Start("submit")
		result, err := s.controller.Submit(ctx.Request.Context())
		slowLog.Stop("submit")
		switch {
		case errors.Is(err, booking.ErrSubmissionInProgress):
			responding.HandleError(ctx, http.StatusConflict, "A booking is already being submitted", err)
			return
		case errors.Is(err, controller.ErrNotAuthorized):
			responding.HandleError(ctx, http.StatusForbidden, "View session is not authorized", err)
			return
		case errors.Is(err, controller.ErrTornDown):
			responding.HandleError(ctx, http.StatusGone, "View session closed", err)
			return
		case err != nil:
			responding.HandleError(ctx, http.StatusInternalServerError, "Failed submitting booking", err)
			return
		}

		ctx.JSON(http.StatusOK, SubmitResponse{
			Outcome: renderOutcome(result),
			View:    s.View(ctx.Request.Context()),
		})
	})

	group.DELETE("", func(ctx *gin.Context) {
		if err := registry.Close(ctx.Request.Context(), ctx.Params.ByName("id")); err != nil {
			responding.HandleError(ctx, http.StatusNotFound, "Failed to find view session", err)
			return
		}

		ctx.Status(http.StatusNoContent)
	})

	group.GET("/events", func(ctx *gin.Context) {
		s := ctx.MustGet(SessionKey).(*Session)

		if err := s.hub.Serve(ctx.Writer, ctx.Request); err != nil {
			logger := ctx.MustGet("logger").(*zerolog.Logger)
			logger.Err(err).Msg("Unable to open view event stream")
		}
	})
}
