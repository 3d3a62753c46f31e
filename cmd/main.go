package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/irfansharif/tessera/internal/app"
	"github.com/irfansharif/tessera/internal/config"
	"github.com/irfansharif/tessera/internal/gpu/glgpu"
	"github.com/irfansharif/tessera/internal/memory"
	"github.com/irfansharif/tessera/internal/render"
)

const logFlags = log.Ltime | log.Lshortfile

var runtimeLogger *log.Logger = log.New(io.Discard, "", 0)

var configPath = flag.String("config", os.Getenv("TESSERA_CONFIG"), "path to a YAML config file")

func init() {
	// OpenGL contexts are tied to specific OS threads - let's pin to just one.
	runtime.LockOSThread()
	log.SetFlags(logFlags)
}

func makeTitle(title string, fps, avgFrameTime float64, clusters int, renderStats render.Stats, memStats map[string]memory.Stats) string {
	var gpuBytes int64
	for _, s := range memStats {
		gpuBytes += s.GPUBytes
	}
	return fmt.Sprintf("%s (%.1f FPS, %.2fms/frame, %d clusters, %d objects, %d culled, %d draw calls/frame, %.2fµs/render, %.1fMiB GPU)",
		title,
		fps,
		avgFrameTime,
		clusters,
		renderStats.ObjectCount,
		renderStats.Culled,
		renderStats.DrawCalls,
		renderStats.LastRenderTimeUs,
		float64(gpuBytes)/(1024.0*1024.0),
	)
}

func loadConfig() config.Config {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	cfg, err := config.FromEnv(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if cfg.Generator.Seed == 0 {
		cfg.Generator.Seed = time.Now().Unix()
	}
	if cfg.Debug.Runtime {
		runtimeLogger = log.New(os.Stdout, "[runtime] ", log.Ltime|log.Lmsgprefix)
	}
	return cfg
}

func main() {
	flag.Parse()
	cfg := loadConfig()

	if err := glfw.Init(); err != nil {
		log.Fatalf("Failed to initialize GLFW: %v", err)
	}
	defer glfw.Terminate()

	// Configure GLFW window hints - use OpenGL 4.1.
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)

	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		log.Fatalf("Failed to create window: %v", err)
	}
	window.MakeContextCurrent()
	if cfg.Window.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	if err := gl.Init(); err != nil {
		log.Fatalf("Failed to initialize OpenGL: %v", err)
	}
	runtimeLogger.Printf("OpenGL %s, seed %d", gl.GoStr(gl.GetString(gl.VERSION)), cfg.Generator.Seed)

	cw, ch := window.GetFramebufferSize()
	application, err := app.NewApp(glgpu.NewDevice(), cfg, app.NewView(cw, ch), cfg.Generator.Seed)
	if err != nil {
		log.Fatalf("Failed to build renderers: %v", err)
	}
	defer application.Close()

	// Create initial cluster manually.
	centerX, centerY := float64(cw)/2.0, float64(ch)/2.0 // center of the canvas
	application.CreateCluster(centerX, centerY, cfg.Generator.Complexity)

	eventHandlers := NewEventHandlers(application, window)

	frameCount, frameTimeSum := 0, 0.0
	lastFPSUpdate, lastFrame := time.Now(), time.Now()

	// Main loop.
	for !window.ShouldClose() {
		frameStart := time.Now()
		dt := frameStart.Sub(lastFrame).Seconds()
		lastFrame = frameStart

		eventHandlers.handleContinuousRegeneration()
		eventHandlers.handleContinuousPanning()
		application.Update(dt)

		w, h := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(w), int32(h))
		gl.ClearColor(1, 1, 1, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)

		application.Render()
		window.SwapBuffers()
		glfw.PollEvents()

		frameTime := time.Since(frameStart).Seconds() * 1000.0 // ms
		frameTimeSum += frameTime

		frameCount++
		now := time.Now()
		if now.Sub(lastFPSUpdate) >= time.Second {
			fps := float64(frameCount) / now.Sub(lastFPSUpdate).Seconds()
			avgFrameTime := frameTimeSum / float64(frameCount)
			frameCount, frameTimeSum = 0, 0.0
			lastFPSUpdate = now

			renderStats := application.Stats()
			memStats := application.MemoryStats()
			window.SetTitle(makeTitle(cfg.Window.Title, fps, avgFrameTime, application.Clusters.Len(), renderStats, memStats))

			runtimeLogger.Println("=== Performance statistics ===")
			runtimeLogger.Printf("Frame rate:     %.1f FPS (%.2f ms/frame, %d draw calls/frame)", fps, avgFrameTime, renderStats.DrawCalls)
			runtimeLogger.Printf("Scene:          %d clusters, %d nodes, %d drawables", application.Clusters.Len(), application.Graph.Len(), application.Pipeline.Len())
			runtimeLogger.Printf("Batching:       %d objects, %d culled, %d dropped, %d textures", renderStats.ObjectCount, renderStats.Culled, renderStats.Dropped, renderStats.TexturesInUse)
			runtimeLogger.Printf("Render time:    %.2f µs (last frame)", renderStats.LastRenderTimeUs)
			runtimeLogger.Println("==============================")

			application.PrintMemoryStats()
		}
	}
}
