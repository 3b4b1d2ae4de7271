package main

import (
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"time"
	"vidlink/internal/db"
	"vidlink/internal/handlers"
	"vidlink/internal/middleware"
	"vidlink/internal/services"
	"vidlink/internal/storage"
	"vidlink/internal/utils"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	utils.InitLogger(os.Getenv("LOG_LEVEL"))

	// Initialize Database
	db.Init()

	// 媒体存储：默认本地磁盘，配了 S3_BUCKET 则走对象存储
	store, err := storage.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to init media storage: %v", err)
	}

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	cookieStore := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("vidlink_session", cookieStore))

	// Load Templates using Multitemplate to avoid collision and allow handler names
	r.HTMLRender = loadTemplates("./web/templates", store)

	// Static Assets
	r.Static("/static", "./web/static")

	// Middleware
	r.Use(middleware.LoadUser())

	// Handlers
	authHandler := handlers.NewAuthHandler()
	videoHandler := handlers.NewVideoHandler(store)
	userHandler := handlers.NewUserHandler()

	// Public Routes
	r.GET("/", videoHandler.Home)
	r.GET("/v/:vid", videoHandler.Detail)
	r.GET("/u/:username", userHandler.Profile)

	r.GET("/signup", authHandler.ShowRegister)
	r.POST("/signup", authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)
	r.GET("/captcha/refresh", authHandler.RefreshCaptcha)

	// 本地存储时由应用自己服务媒体文件
	if local, ok := store.(*storage.LocalStorage); ok {
		mediaHandler := handlers.NewMediaHandler(local)
		r.GET("/media/videos/:name", mediaHandler.Serve)
	}

	// Protected Routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/upload", videoHandler.ShowCreate)
		authorized.POST("/upload", videoHandler.Create)
		authorized.GET("/v/:vid/edit", videoHandler.ShowEdit)
		authorized.POST("/v/:vid/edit", videoHandler.Update)
		authorized.POST("/v/:vid/comment", videoHandler.CreateComment)

		authorized.DELETE("/v/:vid", videoHandler.Delete)
		authorized.DELETE("/comment/:cid", videoHandler.RemoveComment)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("VidLink server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

func loadTemplates(templatesDir string, store storage.Storage) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	includes, err := filepath.Glob(templatesDir + "/includes/*.html")
	if err != nil {
		panic(err)
	}

	// Helper to assemble files
	assemble := func(view string) []string {
		files := make([]string, 0)
		files = append(files, layouts...)
		files = append(files, includes...)
		files = append(files, view)
		return files
	}

	// FuncMap
	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"timeAgo": func(t interface{}) string {
			var timeVal time.Time
			switch v := t.(type) {
			case time.Time:
				timeVal = v
			default:
				return ""
			}

			duration := time.Since(timeVal)
			seconds := int(duration.Seconds())

			if seconds < 60 {
				return fmt.Sprintf("%d秒前", seconds)
			} else if seconds < 3600 {
				return fmt.Sprintf("%d分钟前", seconds/60)
			} else if seconds < 86400 {
				return fmt.Sprintf("%d小时前", seconds/3600)
			} else if seconds < 2592000 {
				return fmt.Sprintf("%d天前", seconds/86400)
			} else if seconds < 31536000 {
				return fmt.Sprintf("%d个月前", seconds/2592000)
			}
			return fmt.Sprintf("%d年前", seconds/31536000)
		},
		"safeHTML": func(s string) template.HTML {
			return template.HTML(s)
		},
		// 评论局部模板是递归的，打包节点和当前访客一起往下传
		"commentCtx": func(node *services.CommentNode, viewer interface{}) gin.H {
			return gin.H{"Node": node, "Viewer": viewer}
		},
		// 媒体文件地址：S3 出公网 URL，本地盘走应用自己的 /media 路由
		"mediaURL": func(path string) string {
			if path == "" {
				return ""
			}
			if s3, ok := store.(*storage.S3Storage); ok {
				return s3.URL(path)
			}
			return "/media/" + path
		},
	}

	// Manual registration to ensure keys match handler expectation
	// Auth
	r.AddFromFilesFuncs("auth/login.html", funcMap, assemble(templatesDir+"/views/auth/login.html")...)
	r.AddFromFilesFuncs("auth/register.html", funcMap, assemble(templatesDir+"/views/auth/register.html")...)

	// Video
	r.AddFromFilesFuncs("video/home.html", funcMap, assemble(templatesDir+"/views/video/home.html")...)
	r.AddFromFilesFuncs("video/detail.html", funcMap, assemble(templatesDir+"/views/video/detail.html")...)
	r.AddFromFilesFuncs("video/create.html", funcMap, assemble(templatesDir+"/views/video/create.html")...)
	r.AddFromFilesFuncs("video/edit.html", funcMap, assemble(templatesDir+"/views/video/edit.html")...)

	// User
	r.AddFromFilesFuncs("user/profile.html", funcMap, assemble(templatesDir+"/views/user/profile.html")...)

	// Error
	r.AddFromFilesFuncs("error.html", funcMap, assemble(templatesDir+"/views/error.html")...)

	return r
}
