package main

import (
	_ "github.com/eleven-am/presence-coach/docs"
	"github.com/eleven-am/presence-coach/internal/bootstrap"
)

// @title Presence Coach API
// @version 1.0.0
// @description Live camera capture and rolling presence analytics for interview practice

// @BasePath /v1

func main() {
	bootstrap.Run()
}
