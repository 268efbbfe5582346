package routes

import (
	"roamio/live"
	"roamio/middleware"
	"roamio/ratelim"
	"roamio/schedule"

	"github.com/julienschmidt/httprouter"
)

func AddScheduleRoutes(router *httprouter.Router, api *schedule.API, rl *ratelim.RateLimiter) {
	router.POST("/api/schedule/sessions", rl.Limit(middleware.Authenticate(api.CreateSession)))
	router.GET("/api/schedule/sessions/:id", middleware.Authenticate(api.GetSession))
	router.PUT("/api/schedule/sessions/:id/days", rl.Limit(middleware.Authenticate(api.ReplaceDay)))

	router.POST("/api/schedule/sessions/:id/edit", rl.Limit(middleware.Authenticate(api.BeginEdit)))
	router.POST("/api/schedule/sessions/:id/reorder", rl.Limit(middleware.Authenticate(api.Reorder)))
	router.POST("/api/schedule/sessions/:id/insert", rl.Limit(middleware.Authenticate(api.Insert)))
	router.POST("/api/schedule/sessions/:id/delete", rl.Limit(middleware.Authenticate(api.Delete)))
	router.POST("/api/schedule/sessions/:id/duration", rl.Limit(middleware.Authenticate(api.UpdateDuration)))
	router.POST("/api/schedule/sessions/:id/retime", rl.Limit(middleware.Authenticate(api.Retime)))
	router.POST("/api/schedule/sessions/:id/resequence", rl.Limit(middleware.Authenticate(api.Resequence)))
	router.POST("/api/schedule/sessions/:id/daystart", rl.Limit(middleware.Authenticate(api.UpdateDayStart)))
	router.POST("/api/schedule/sessions/:id/move", rl.Limit(middleware.Authenticate(api.MoveCrossDay)))

	router.POST("/api/schedule/sessions/:id/dismiss", rl.Limit(middleware.Authenticate(api.DismissConflict)))
	router.POST("/api/schedule/sessions/:id/hours/refresh", rl.Limit(middleware.Authenticate(api.RefreshHours)))
	router.GET("/api/schedule/sessions/:id/risk/:date", middleware.Authenticate(api.Risk))

	router.POST("/api/schedule/sessions/:id/propose", rl.Limit(middleware.Authenticate(api.Propose)))
	router.POST("/api/schedule/sessions/:id/apply", rl.Limit(middleware.Authenticate(api.Apply)))
	router.POST("/api/schedule/sessions/:id/discard", rl.Limit(middleware.Authenticate(api.Discard)))
}

func AddLiveRoutes(router *httprouter.Router, hub *live.Hub) {
	router.GET("/ws/schedule/:id", live.WebSocketHandler(hub))
}
