package desk

import (
	"net/http"
	"reflect"

	"bitbucket.org/crgw/rental-desk/internal/tools/responding"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	SessionKey string = "session"
	ParamsKey  string = "params"
)

func PrepareSession(registry *Registry) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		s, err := registry.Get(ctx.Params.ByName("id"))
		if err != nil {
			responding.HandleError(ctx, http.StatusNotFound, "Failed to find view session", err)
			return
		}

		ctx.Set(SessionKey, s)
	}
}

func PrepareParams(val any) gin.HandlerFunc {
	value := reflect.ValueOf(val)
	if value.Kind() == reflect.Ptr {
		panic(`Bind struct can not be a pointer.`)
	}

	typ := value.Type()

	return func(ctx *gin.Context) {
		params := reflect.New(typ).Interface()

		err := ctx.ShouldBindJSON(params)
		if err != nil {
			responding.HandleError(ctx, http.StatusBadRequest, "Failed to bind request params", err)
			return
		}

		ctx.Set(ParamsKey, params)
	}
}

func TapLogger(c *gin.Context) {
	logger := c.MustGet("logger").(*zerolog.Logger)

	requestLogger := logger.
		With().
		Str("sessionId", c.Params.ByName("id")).
		Logger()

	c.Set("logger", &requestLogger)
}
