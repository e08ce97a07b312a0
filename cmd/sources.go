package main

import (
	"github.com/sells-group/corpus-refresh/internal/config"
	"github.com/sells-group/corpus-refresh/internal/sources"
)

func loadSourceFilter(sc config.SourcesConfig) (*sources.Filter, error) {
	var (
		c   *sources.Catalog
		err error
	)
	if sc.CatalogPath != "" {
		c, err = sources.LoadCatalog(sc.CatalogPath)
	} else {
		c, err = sources.DefaultCatalog()
	}
	if err != nil {
		return nil, err
	}
	return sources.NewFilter(c), nil
}
