// Package vectorutils is the vector index utility package
package vectorutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/pkg/vector"
	"github.com/tenglaafi/tenglaafi/pkg/vector/chroma"
	"github.com/tenglaafi/tenglaafi/pkg/vector/sqlitevec"
)

type NewIndexOpts struct {
	ProviderType string
	TargetURL    string
	Collection   string
	DBPath       string
	Dimensions   int
	Logger       *zap.Logger
}

func NewIndex(o *NewIndexOpts) (vector.Index, error) {
	switch o.ProviderType {
	case "chroma":
		return chroma.NewChromaIndex(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
		}, o.Logger)
	case "sqlite":
		return sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{
			DBPath:     o.DBPath,
			Dimensions: uint(o.Dimensions),
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector index provider: %s", o.ProviderType)
	}
}
