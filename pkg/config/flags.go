package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --corpus
// on "tenglaafi serve", "tenglaafi index", and "tenglaafi query").
type Flag struct {
	// Name is the long flag name (e.g. "corpus").
	Name string

	// Shorthand is the one-letter short flag (e.g. "c"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "corpus.path").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagCorpus          = "corpus"
	FlagAPIListen       = "api-listen"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagCollection      = "collection"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagLLMProv         = "llm-provider"
	FlagLLMTgt          = "llm-target"
	FlagLLMModel        = "llm-model"
	FlagTopK            = "top-k"
	FlagEventsProv      = "events-provider"
	FlagEventsBrokers   = "events-brokers"
)

// DefaultFlagSet returns the registry of flags shared by the tenglaafi
// commands.
func DefaultFlagSet() FlagSet {
	return FlagSet{
		FlagCorpus: {
			Name: "corpus", Shorthand: "c", ViperKey: "corpus.path",
			Description: "path to the JSON corpus file",
		},
		FlagAPIListen: {
			Name: "listen", Shorthand: "l", ViperKey: "api.listen",
			Description: "address for the HTTP API to listen on",
		},
		FlagVectorStoreProv: {
			Name: "vector-store-provider", ViperKey: "vector_store.provider",
			Description: "vector store backend (chroma or sqlite)",
		},
		FlagVectorStoreTgt: {
			Name: "vector-store-target", ViperKey: "vector_store.target",
			Description: "vector store target (chroma URL or sqlite path)",
		},
		FlagCollection: {
			Name: "collection", ViperKey: "vector_store.collection",
			Description: "vector store collection name",
		},
		FlagEmbeddingProv: {
			Name: "embedding-provider", ViperKey: "embedding.provider",
			Description: "embedding provider (ollama or huggingface)",
		},
		FlagEmbeddingTgt: {
			Name: "embedding-target", ViperKey: "embedding.target",
			Description: "embedding provider base URL",
		},
		FlagEmbeddingModel: {
			Name: "embedding-model", ViperKey: "embedding.model",
			Description: "embedding model name",
		},
		FlagLLMProv: {
			Name: "llm-provider", ViperKey: "llm.provider",
			Description: "generation provider (ollama or huggingface)",
		},
		FlagLLMTgt: {
			Name: "llm-target", ViperKey: "llm.target",
			Description: "generation provider base URL",
		},
		FlagLLMModel: {
			Name: "llm-model", ViperKey: "llm.model",
			Description: "generation model name",
		},
		FlagTopK: {
			Name: "top-k", Shorthand: "k", ViperKey: "rag.top_k",
			Description: "number of documents to retrieve per query",
		},
		FlagEventsProv: {
			Name: "events-provider", ViperKey: "events.provider",
			Description: "query event publisher (nop or kafka)",
		},
		FlagEventsBrokers: {
			Name: "events-brokers", ViperKey: "events.brokers",
			Description: "comma-separated kafka broker list",
		},
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}
