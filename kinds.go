package vecbench

// Bundled index kinds, available to Config.Index.Kind.
import (
	_ "github.com/hupe1980/vecbench/index/flat"
	_ "github.com/hupe1980/vecbench/index/hnsw"
)
