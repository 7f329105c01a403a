// Package main, mqvi backend uygulamasının giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//   1.  Config'i yükle
//   2.  Database'i başlat
//   3.  Tek sunucu kaydını seed et (yoksa)
//   4.  Repository'leri oluştur (DB bağlantısı ile)
//   5.  Encryption key derive et (AES-256)
//   6.  Gateway (Registry/Router/Hub) başlat
//   7.  Service'leri oluştur (repository'ler + gateway ile)
//   8.  Handler'ları oluştur (service'ler ile)
//   9.  WebSocket gateway handler'ı kur
//  10.  HTTP router'ı kur, route'ları bağla
//  11.  CORS yapılandır
//  12.  Zamanlanmış mesaj/anket scheduler'ını başlat
//  13.  SPA frontend'i sun
//  14.  HTTP Server'ı başlat
//  15.  Graceful shutdown
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/akinalp/mqvi/config"
	"github.com/akinalp/mqvi/database"
	"github.com/akinalp/mqvi/gateway"
	"github.com/akinalp/mqvi/pkg/crypto"
	"github.com/akinalp/mqvi/pkg/id"
	"github.com/akinalp/mqvi/static"
	"github.com/lmittmann/tint"
	"github.com/rs/cors"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{TimeFormat: time.Kitchen})))
	log.Println("[main] mqvi server starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d)", cfg.Server.Port)

	// ─── 2. Database ───
	// Migration dosyaları binary'ye gömülü (embed.FS).
	// fs.Sub ile "migrations/" alt dizinine erişiyoruz — dosya isimleri
	// doğrudan "001_init.sql" olarak okunabilir.
	migrationsFS, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		log.Fatalf("[main] failed to access embedded migrations: %v", err)
	}

	db, err := database.New(cfg.Database.Path, migrationsFS)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── 3. Tek Sunucu Seed ───
	//
	// Migration'lar sadece şemayı oluşturur, satır eklemez. "server" tablosu
	// her zaman tam bir satır tutmalıdır (ServerRepository.Get LIMIT 1 yapar) —
	// uygulama ilk kez ayağa kalkarken bu satır yoksa oluşturuyoruz.
	// owner_id ilk kullanıcı kayıt olana kadar boş kalır; AuthService.Register
	// ilk kullanıcıya owner rolü atar ama bu alan sadece bilgi amaçlıdır.
	if err := seedServer(context.Background(), db, cfg); err != nil {
		log.Fatalf("[main] failed to seed server row: %v", err)
	}

	// ─── 4. Repository Layer ───
	repos := initRepositories(db.Conn)

	// ─── 5. Encryption Key ───
	//
	// AES-256-GCM şifreleme anahtarı — LiveKit credential'larını DB'de
	// şifrelenmiş saklamak için. ENCRYPTION_KEY env variable'dan (64 hex char)
	// 32-byte binary key'e dönüştürülür.
	encryptionKey, err := crypto.DeriveKey(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("[main] invalid ENCRYPTION_KEY: %v", err)
	}

	// ─── 6. Gateway ───
	//
	// Registry, bağlı oturumların/presence/voice durumunun in-memory kaydını
	// tutar. Router, ham (session/user/server) hedefli dağıtım yapar — mesaj
	// ve anket servisleri buna doğrudan bağımlıdır (MessageBroadcaster/
	// PollBroadcaster). Hub, Router'ın üzerine kurulu, eski tarz
	// Event{Op,Data} fan-out API'sini sağlar — diğer tüm servisler
	// gateway.EventPublisher/Broadcaster üzerinden buna bağımlıdır.
	registry := gateway.NewRegistry()
	router := gateway.NewRouter(registry)
	hub := gateway.NewHub(registry, router)

	// ─── 7. Service Layer ───
	svcs, limiters, err := initServices(db.Conn, repos, hub, router, cfg, encryptionKey)
	if err != nil {
		log.Fatalf("[main] failed to initialize services: %v", err)
	}

	// ─── 8. Handler Layer ───
	handlers := initHandlers(svcs, limiters)

	// ─── 9. WebSocket Gateway Handler ───
	//
	// Identify sırasında gönderilen bearer token'ı doğrulayan adapter —
	// AuthService zaten JWT claim'lerini çözüyor, burada sadece userID'yi
	// gateway.TokenValidator'ın beklediği imzaya indirgiyoruz.
	wsHandler := &gateway.Handler{
		Registry: registry,
		Router:   router,
		Tokens:   tokenValidatorFunc(func(token string) (string, error) {
			claims, err := svcs.Auth.ValidateAccessToken(token)
			if err != nil {
				return "", err
			}
			return claims.UserID, nil
		}),
		Servers:      svcs.Server,
		Logger:       slog.Default(),
		NewSessionID: id.New,
	}

	// ─── 10. HTTP Router ───
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"mqvi"}`)
	})

	initRoutes(mux, handlers, wsHandler, svcs.Auth, repos.User, repos.Role)

	// ─── 11. CORS ───
	//
	// CORS_ORIGINS env variable ile ek origin'ler eklenebilir (virgülle ayrılmış).
	// Production'da frontend aynı origin'den servis edilir — CORS gerekmez.
	// Ama Tauri desktop client ve development için CORS hâlâ gerekli.
	corsOrigins := []string{
		"http://localhost:3030",   // Vite dev server
		"http://localhost:1420",   // Tauri dev
		"tauri://localhost",       // Tauri production (macOS/Linux)
		"https://tauri.localhost", // Tauri production (Windows, release)
		"http://tauri.localhost",  // Tauri production (Windows, debug)
	}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, origin := range strings.Split(extra, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				corsOrigins = append(corsOrigins, origin)
			}
		}
	}
	log.Printf("[cors] allowed origins: %v", corsOrigins)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	// ─── 12. Scheduler ───
	//
	// Zamanlanmış mesajları gönderme ve süresi dolan anketleri kapatma işini
	// arka planda periyodik olarak yapar (gocron).
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	if err := svcs.Scheduler.Start(schedulerCtx); err != nil {
		log.Fatalf("[main] failed to start scheduler: %v", err)
	}

	// ─── 13. SPA Frontend Serving ───
	//
	// React frontend build çıktısı binary'ye gömülü (embed.FS).
	// /api/* ve /ws dışındaki tüm request'ler frontend'e yönlendirilir.
	// SPA (Single Page Application) routing: bilinmeyen path'ler → index.html
	//
	// Bu handler sadece production build'de çalışır. Development'ta
	// dist/ içi boştur (.gitkeep) ve Vite dev server frontend'i servis eder.
	frontendFS, err := fs.Sub(static.FrontendFS, "dist")
	if err != nil {
		log.Fatalf("[main] failed to access embedded frontend: %v", err)
	}
	hasFrontend := false
	if f, checkErr := frontendFS.(fs.ReadFileFS).ReadFile("index.html"); checkErr == nil && len(f) > 0 {
		hasFrontend = true
		log.Println("[main] embedded frontend detected, SPA serving enabled")
	} else {
		log.Println("[main] no embedded frontend, API-only mode (use Vite dev server for frontend)")
	}

	apiHandler := corsHandler.Handler(mux)

	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// API ve WebSocket route'ları → normal mux
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/ws" {
			apiHandler.ServeHTTP(w, r)
			return
		}

		// Frontend embed edilmemişse (development) → 404
		if !hasFrontend {
			apiHandler.ServeHTTP(w, r)
			return
		}

		// Static dosya var mı? (JS, CSS, resimler vb.)
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}
		if f, openErr := frontendFS.Open(path); openErr == nil {
			f.Close()
			http.FileServer(http.FS(frontendFS)).ServeHTTP(w, r)
			return
		}

		// SPA fallback: bilinmeyen path → index.html
		// React Router client-side routing'i devralır.
		indexData, readErr := fs.ReadFile(frontendFS, "index.html")
		if readErr != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexData)
	})

	// ─── 14. HTTP Server ───
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── 15. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Scheduler'ı durdur — yeni tetiklenme yapmasın.
	if err := svcs.Scheduler.Stop(); err != nil {
		log.Printf("[main] scheduler stop error: %v", err)
	}
	cancelScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}

// tokenValidatorFunc adapts a plain function to gateway.TokenValidator —
// same pattern as http.HandlerFunc.
type tokenValidatorFunc func(token string) (string, error)

func (f tokenValidatorFunc) ValidateAccessToken(token string) (string, error) {
	return f(token)
}

// seedServer, "server" tablosunda hiç satır yoksa tek bir varsayılan
// kayıt oluşturur. Migration'lar sadece şemayı kurduğu için bu satır
// uygulamanın ilk açılışında burada seed edilir.
func seedServer(ctx context.Context, db *database.DB, cfg *config.Config) error {
	var count int
	if err := db.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM server`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count server rows: %w", err)
	}
	if count > 0 {
		return nil
	}

	serverID := id.New()
	name := os.Getenv("SERVER_NAME")
	if name == "" {
		name = "mqvi"
	}

	_, err := db.Conn.ExecContext(ctx,
		`INSERT INTO server (id, name, owner_id, invite_required) VALUES (?, ?, '', 0)`,
		serverID, name,
	)
	if err != nil {
		return fmt.Errorf("failed to seed server row: %w", err)
	}
	log.Printf("[main] seeded server row (id=%s, name=%s)", serverID, name)

	// LiveKit bilgileri env'de tanımlıysa, bu tek sunucu için bir LiveKit
	// instance kaydı oluştur ve bağla — voice kanalları bu kayıt olmadan
	// token üretemez (VoiceService.GenerateToken serverID üzerinden lookup yapar).
	if cfg.LiveKit.URL != "" && cfg.LiveKit.APIKey != "" && cfg.LiveKit.APISecret != "" {
		encryptionKey, err := crypto.DeriveKey(cfg.EncryptionKey)
		if err != nil {
			return fmt.Errorf("invalid ENCRYPTION_KEY during livekit seed: %w", err)
		}
		encKey, err := crypto.Encrypt(cfg.LiveKit.APIKey, encryptionKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt livekit api key: %w", err)
		}
		encSecret, err := crypto.Encrypt(cfg.LiveKit.APISecret, encryptionKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt livekit api secret: %w", err)
		}

		lkID := id.New()
		if _, err := db.Conn.ExecContext(ctx,
			`INSERT INTO livekit_instances (id, url, api_key, api_secret, is_platform_managed, server_count, max_servers) VALUES (?, ?, ?, ?, 0, 0, 0)`,
			lkID, cfg.LiveKit.URL, encKey, encSecret,
		); err != nil {
			return fmt.Errorf("failed to seed livekit instance: %w", err)
		}
		if _, err := db.Conn.ExecContext(ctx,
			`UPDATE server SET livekit_instance_id = ? WHERE id = ?`, lkID, serverID,
		); err != nil {
			return fmt.Errorf("failed to link livekit instance to server: %w", err)
		}
		log.Printf("[main] seeded LiveKit instance for server (url=%s)", cfg.LiveKit.URL)
	}

	return nil
}
