package main

import (
	"context"

	"github.com/whattherepo/whattherepo/internal/cache"
	"github.com/whattherepo/whattherepo/internal/handlers"
	"github.com/whattherepo/whattherepo/internal/llm"
	"github.com/whattherepo/whattherepo/internal/mart"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

// openStore connects to the vector store and makes sure the schema exists.
func openStore(ctx context.Context, extra ...vectorstore.Option) (*vectorstore.Store, error) {
	opts := append([]vectorstore.Option{
		vectorstore.WithProbes(cfg.VectorStore.SearchProbes),
		vectorstore.WithQueryLimit(cfg.VectorStore.QueryRowLimit),
	}, extra...)
	store, err := vectorstore.New(ctx, cfg.VectorStore.DSN, opts...)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// openMart connects to the relational mart and ensures its schema.
func openMart(ctx context.Context) (*mart.Mart, error) {
	m, err := mart.Open(cfg.Mart.Driver, cfg.Mart.DSN)
	if err != nil {
		return nil, err
	}
	if err := m.EnsureSchema(ctx); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// newGateway builds the LLM gateway from the loaded configuration.
func newGateway() *llm.Gateway {
	return llm.NewGateway(cfg.LLM.OpenAIKey,
		llm.WithChatModel(cfg.LLM.ChatModel),
		llm.WithEmbedModel(cfg.LLM.EmbedModel),
		llm.WithTimeout(cfg.LLM.RequestTimeout))
}

// newQueryGateway is the query-side gateway. It may use a cheaper
// embedding model than the one used at index time.
func newQueryGateway() *llm.Gateway {
	embedModel := cfg.LLM.QueryEmbed
	if embedModel == "" {
		embedModel = cfg.LLM.EmbedModel
	}
	return llm.NewGateway(cfg.LLM.OpenAIKey,
		llm.WithChatModel(cfg.LLM.ChatModel),
		llm.WithEmbedModel(embedModel),
		llm.WithTimeout(cfg.LLM.RequestTimeout))
}

// newQueryServices wires the query path. The cache is optional: without
// a Redis address every embedding is computed fresh.
func newQueryServices(ctx context.Context, store *vectorstore.Store, gateway *llm.Gateway) *handlers.Services {
	var cacheClient *cache.Client
	if cfg.Cache.RedisAddr != "" {
		c, err := cache.NewClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, running without embedding cache")
		} else {
			cacheClient = c
		}
	}
	return handlers.New(store, gateway, cacheClient)
}
