package config

import (
	"github.com/spf13/viper"

	"github.com/routekit/sitemap/internal/sitemap"
)

type Config struct {
	Server struct {
		Port int
	}
	Database struct {
		Driver string // "sqlite" or "postgres"
		URL    string // postgres connection string
		Path   string // sqlite file path
	}
	Log struct {
		Level string
		Dir   string
	}
	Sitemap struct {
		IncludeRoutesWithoutParams bool
		IgnoreEndpoints            []string
		URLScheme                  string
		URLHost                    string
		Blueprint                  string
		BlueprintURLPrefix         string
		EndpointURL                string
		PageEndpointURL            string
		MaxURLCount                int
		Gzip                       bool
	}
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "sitemapd.db")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.dir", "logs")
	viper.SetDefault("sitemap.includerouteswithoutparams", true)
	viper.SetDefault("sitemap.urlscheme", "https")
	viper.SetDefault("sitemap.urlhost", "localhost")
	viper.SetDefault("sitemap.blueprint", "sitemap")
	viper.SetDefault("sitemap.blueprinturlprefix", "")
	viper.SetDefault("sitemap.endpointurl", "/sitemap.xml")
	viper.SetDefault("sitemap.pageendpointurl", "/sitemap/:page")
	viper.SetDefault("sitemap.maxurlcount", 0)
	viper.SetDefault("sitemap.gzip", false)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// SitemapOptions maps the sitemap section onto collector options.
func (c *Config) SitemapOptions() sitemap.Options {
	return sitemap.Options{
		IncludeRoutesWithoutParams: c.Sitemap.IncludeRoutesWithoutParams,
		IgnoreEndpoints:            c.Sitemap.IgnoreEndpoints,
		URLScheme:                  c.Sitemap.URLScheme,
		URLHost:                    c.Sitemap.URLHost,
		Blueprint:                  c.Sitemap.Blueprint,
		BlueprintURLPrefix:         c.Sitemap.BlueprintURLPrefix,
		EndpointURL:                c.Sitemap.EndpointURL,
		PageEndpointURL:            c.Sitemap.PageEndpointURL,
		MaxURLCount:                c.Sitemap.MaxURLCount,
		Gzip:                       c.Sitemap.Gzip,
	}
}
