package router

import (
	"github.com/gin-gonic/gin"

	"forest.app/forest/internal/http/handler"
)

func OnboardingRouter(rg *gin.RouterGroup, h *handler.OnboardingHandler) {
	rg.POST("/set_goal", h.SetGoal)
	rg.POST("/add_context", h.AddContext)
}

func CommandRouter(rg *gin.RouterGroup, commands *handler.CommandHandler, tasks *handler.TaskHandler) {
	rg.POST("/command", commands.Process)
	rg.POST("/complete_task", tasks.Complete)
}

func SnapshotRouter(rg *gin.RouterGroup, snapshots *handler.SnapshotHandler, tasks *handler.TaskHandler) {
	rg.GET("/users/:user_id/snapshot", snapshots.Latest)
	rg.GET("/tasks/:task_id/events", tasks.Events)
	rg.GET("/reflections/:reflection_id/events", snapshots.ReflectionEvents)
}
