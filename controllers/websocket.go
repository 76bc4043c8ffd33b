package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/branch-ordering/kds"
	"github.com/yeremiapane/branch-ordering/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// subscribe upgrades the request and hands the connection to the hub.
func subscribe(c *gin.Context, hub *kds.Hub, channel string) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Warnf("websocket upgrade on %s failed: %v", channel, err)
		return
	}
	hub.Register(ws, channel)
}
