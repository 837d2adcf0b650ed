package es

import (
	"context"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/videohub/internal/config"
	"github.com/Skotchmaster/videohub/internal/logging"
)

// NewClient connects to Elasticsearch and checks the cluster answers Info.
func NewClient(ctx context.Context, cfg config.ESConfig) (*elasticsearch.Client, error) {
	l := logging.FromContext(ctx).With("component", "es")
	l.Info("es_connecting", "url", cfg.URL, "user", cfg.User)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("es: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("es: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es: info returned %s: %s", res.Status(), body)
	}

	l.Info("es_connected")
	return client, nil
}
