package lark

import (
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark client configuration
type Config struct {
	AppID         string
	AppSecret     string
	ReceiveIDType string // open_id, user_id, email
	Timeout       time.Duration
}

// Client wraps the Lark SDK client
type Client struct {
	sdk    *lark.Client
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a new Lark client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.ReceiveIDType == "" {
		cfg.ReceiveIDType = "open_id"
	}
	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, lark.WithReqTimeout(cfg.Timeout))
	}

	return &Client{
		sdk:    lark.NewClient(cfg.AppID, cfg.AppSecret, opts...),
		cfg:    cfg,
		logger: logger,
	}
}

// SDK returns the underlying Lark SDK client
func (c *Client) SDK() *lark.Client {
	return c.sdk
}
