package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/routekit/sitemap/internal/sitemap"
	"github.com/routekit/sitemap/internal/storage"
)

type Server struct {
	router *gin.Engine
	port   int
	server *http.Server
}

func NewServer(port int, store storage.Store, opts sitemap.Options) (*Server, error) {
	router := gin.Default()

	// Setup CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Create handler
	handler := NewHandler(store)

	// Setup routes
	router.GET("/", handler.Home)
	router.GET("/about", handler.About)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	posts := router.Group("/posts")
	{
		posts.GET("", handler.ListPosts)
		posts.GET("/:slug", handler.GetPost)
	}

	// The sitemap should not list its own endpoints.
	opts.IgnoreEndpoints = append(opts.IgnoreEndpoints, "ServeSitemap", "ServePage")

	sm := sitemap.New(opts)
	sm.NameRoute("posts.show", "/posts/:slug")
	sm.Register(postsGenerator(store))
	if err := sm.Attach(router); err != nil {
		return nil, err
	}

	return &Server{
		router: router,
		port:   port,
	}, nil
}

// postsGenerator yields one sitemap candidate per stored post, with the
// post's own change frequency and priority.
func postsGenerator(store storage.Store) sitemap.Generator {
	return func() ([]sitemap.Candidate, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		count, err := store.CountPosts(ctx)
		if err != nil {
			return nil, err
		}

		posts, err := store.ListPosts(ctx, count, 0)
		if err != nil {
			return nil, err
		}

		candidates := make([]sitemap.Candidate, 0, len(posts))
		for _, post := range posts {
			candidates = append(candidates, sitemap.Endpoint(
				"posts.show",
				map[string]string{"slug": post.Slug},
				post.UpdatedAt.Format("2006-01-02"),
				post.ChangeFreq,
				post.Priority,
			))
		}
		return candidates, nil
	}
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
