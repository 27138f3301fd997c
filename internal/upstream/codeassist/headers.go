package codeassist

import (
	"fmt"
	"net/http"
	"runtime"

	"gemini-gateway/internal/constants"
)

// osNames and archNames are the closed maps spec.md 4.8 calls for; runtime
// values outside them fall back to runtime.GOOS/GOARCH verbatim so the
// gateway never panics on an unanticipated build target.
var osNames = map[string]string{
	"darwin":  "darwin",
	"linux":   "linux",
	"windows": "windows",
}

var archNames = map[string]string{
	"arm64": "arm64",
	"amd64": "amd64",
}

// userAgent builds the CLI-mimicry User-Agent: "GeminiCLI/<VER> (<OS>; <ARCH>)".
func userAgent() string {
	osName, ok := osNames[runtime.GOOS]
	if !ok {
		osName = runtime.GOOS
	}
	arch, ok := archNames[runtime.GOARCH]
	if !ok {
		arch = runtime.GOARCH
	}
	return fmt.Sprintf("GeminiCLI/%s (%s; %s)", constants.Version, osName, arch)
}

// applyHeaders sets the fixed headers every upstream request carries:
// bearer auth, CLI User-Agent, and client metadata Google's Code Assist
// backend expects from its own CLI.
func applyHeaders(req *http.Request, bearer string) {
	req.Header.Set("Content-Type", "application/json")
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Client-Metadata", "ideType=IDE_UNSPECIFIED,platform=PLATFORM_UNSPECIFIED,pluginType=GEMINI")
}
