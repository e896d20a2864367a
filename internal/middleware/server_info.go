package middleware

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// ServerInfo imprime el banner de arranque y lo registra en el log
func ServerInfo(port string, requireApproval bool, logger *zap.Logger) {
	hostname, _ := os.Hostname()
	goVersion := runtime.Version()
	numCPU := runtime.NumCPU()
	startTime := time.Now().Format("2006-01-02 15:04:05")

	approval := "optional"
	if requireApproval {
		approval = "required"
	}

	fmt.Println("")
	fmt.Println("🚀 " + boldColor + "Warehouse Service API" + resetColor)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("📅 Started at: " + startTime)
	fmt.Println("🌐 Server URL: " + cyanColor + "http://localhost:" + port + resetColor)
	fmt.Println("💻 Hostname: " + hostname)
	fmt.Println("🔧 Go Version: " + goVersion)
	fmt.Printf("⚡ CPU Cores: %d\n", numCPU)
	fmt.Println("")
	fmt.Println("📊 " + boldColor + "Available Endpoints:" + resetColor)
	fmt.Println("   GET  " + greenColor + "/health" + resetColor + "                          - Health Check")
	fmt.Println("   *    " + greenColor + "/api/v1/stock-out" + resetColor + "                - Stock out requests")
	fmt.Println("   *    " + greenColor + "/api/v1/sessions" + resetColor + "                 - Scan sessions")
	fmt.Println("   *    " + greenColor + "/api/v1/locations" + resetColor + "                - Location reconciliation")
	fmt.Println("   *    " + greenColor + "/api/v1/reservations" + resetColor + "             - Reservations")
	fmt.Println("   GET  " + greenColor + "/api/v1/monitoring/metrics" + resetColor + "       - Metrics")
	fmt.Println("")
	fmt.Println("⚙️  " + boldColor + "Environment:" + resetColor)
	fmt.Println("   🗄️  Database: PostgreSQL")
	fmt.Println("   🗃️  Cache: Redis + in-memory L1")
	fmt.Println("   ✅ Approval: " + approval)
	fmt.Println("")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("✨ " + boldColor + "Server is ready to handle requests!" + resetColor)
	fmt.Println("")

	logger.Info("Server started successfully",
		zap.String("port", port),
		zap.String("hostname", hostname),
		zap.String("go_version", goVersion),
		zap.Int("cpu_cores", numCPU),
		zap.Bool("require_approval", requireApproval),
		zap.String("start_time", startTime),
	)
}
