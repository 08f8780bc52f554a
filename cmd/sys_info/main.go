package main

import (
	"github.com/Bram-diederik/ai-linux-system-info/internal/agentcli"
)

// Set via ldflags; update checks what --version prints:
//
//	go build -ldflags "-X main.version=1.4.0" -o sys_info-linux-amd64 ./cmd/sys_info
var version = "dev"

func main() {
	agentcli.SetVersionInfo(version)
	agentcli.Execute()
}
