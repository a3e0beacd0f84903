package realtime

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/gin-gonic/gin"
)

// Version 服务版本号
const Version = "1.0.0"

// banner ASCII Art
const banner = `
 ____            _ _   _
|  _ \ ___  __ _| | |_(_)_ __ ___   ___   Pusher 协议兼容的实时消息服务
| |_) / _ \/ _` + "`" + ` | | __| | '_ ` + "`" + ` _ \ / _ \  github: https://github.com/tokmz/realtime
|  _ <  __/ (_| | | |_| | | | | | |  __/  ws: %s/app/{key}
|_| \_\___|\__,_|_|\__|_|_| |_| |_|\___|  version: %s
`

// printBanner 打印启动 banner 和路由表
func (s *Server) printBanner(addr string) {
	out := os.Stdout

	// 拼接访问地址
	var open string
	if strings.HasPrefix(addr, ":") {
		open = "ws://127.0.0.1" + addr
	} else if strings.Contains(addr, ":") {
		open = "ws://" + addr
	} else {
		open = "ws://127.0.0.1:" + addr
	}

	// 打印 banner
	fPrint(out, banner, open, Version)
	fPrint(out, "\n")

	// 打印路由表
	routes := s.engine.Routes()
	if len(routes) > 0 {
		printRoutes(out, routes, s.config.Mode)
		fPrint(out, "\n")
	}

	// 打印运行模式
	mode := s.config.Mode
	if mode == "debug" {
		fPrint(out, "[realtime] Running in \"%s\" mode. Switch to \"release\" mode in production.\n", mode)
	} else {
		fPrint(out, "[realtime] Running in \"%s\" mode.\n", mode)
	}

	// 打印环境信息
	fPrint(out, "[realtime] Go version: %s | OS: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

	// 打印启动信息
	fPrint(out, "[realtime] Adapter: %s | Apps: %s\n", s.config.WS.Adapter.Driver, s.config.Apps.Driver)
	fPrint(out, "[realtime] Listening on %s\n", addr)
}

// methodColor 根据 HTTP 方法返回 ANSI 颜色码
func methodColor(method string) string {
	switch method {
	case "GET":
		return "\033[34m" // 蓝色
	case "POST":
		return "\033[32m" // 绿色
	case "PUT":
		return "\033[33m" // 黄色
	case "DELETE":
		return "\033[31m" // 红色
	case "PATCH":
		return "\033[36m" // 青色
	case "HEAD":
		return "\033[35m" // 紫色
	case "OPTIONS":
		return "\033[37m" // 灰色
	default:
		return "\033[0m"
	}
}

const resetColor = "\033[0m"

// printRoutes 格式化打印路由表
func printRoutes(out io.Writer, routes gin.RoutesInfo, mode string) {
	// 计算路径列最大宽度，用于对齐
	maxPathLen := 0
	for _, r := range routes {
		if len(r.Path) > maxPathLen {
			maxPathLen = len(r.Path)
		}
	}

	for _, r := range routes {
		fPrint(out, "[realtime-%s] %s %-7s %s %-*s --> %s\n",
			mode,
			methodColor(r.Method), r.Method, resetColor,
			maxPathLen, r.Path,
			r.Handler)
	}
}

// silenceGin 静默 Gin 的默认输出，请求日志由 middleware.Logger 负责
func silenceGin() {
	gin.DefaultWriter = io.Discard
	gin.DefaultErrorWriter = io.Discard
}

// fPrint 打印到 writer，忽略错误（banner 输出场景）
func fPrint(out io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(out, format, a...)
}
