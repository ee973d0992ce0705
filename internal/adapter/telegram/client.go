package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tgup/internal/domain"
)

// 512KB is the maximum part size accepted by the server.
const uploadPartSize = 512 * 1024

// Client implements domain.Messenger on top of gotd.
type Client struct {
	client *telegram.Client
	api    *tg.Client
	sender *message.Sender
	log    *zap.Logger

	mu    sync.RWMutex
	peers map[domain.Entity]tg.InputPeerClass
	docs  map[int]*tg.Document

	runGroup *errgroup.Group
	cancel   context.CancelFunc
}

// AuthInput defines an interface for interactive authentication input.
type AuthInput interface {
	GetPhoneNumber() (string, error)
	GetCode() (string, error)
	GetPassword() (string, error)
}

func NewClient(appID int, appHash string, sessionFile string, proxy domain.ProxySpec, log *zap.Logger) (*Client, error) {
	if err := os.MkdirAll(filepath.Dir(sessionFile), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}

	opts := telegram.Options{
		SessionStorage: &session.FileStorage{Path: sessionFile},
		Logger:         log.Named("gotd"),
	}

	resolver, err := resolverFor(proxy)
	if err != nil {
		return nil, err
	}
	if resolver != nil {
		opts.Resolver = resolver
	}

	return &Client{
		client: telegram.NewClient(appID, appHash, opts),
		log:    log,
		peers:  make(map[domain.Entity]tg.InputPeerClass),
		docs:   make(map[int]*tg.Document),
	}, nil
}

// Start connects and authenticates the client, then keeps the
// connection alive in the background until Close is called.
func (c *Client) Start(ctx context.Context, input AuthInput) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	ready := make(chan error, 1)

	g, gCtx := errgroup.WithContext(runCtx)
	c.runGroup = g
	g.Go(func() error {
		err := c.client.Run(gCtx, func(ctx context.Context) error {
			status, err := c.client.Auth().Status(ctx)
			if err != nil {
				return fmt.Errorf("auth status check failed: %w", err)
			}

			if !status.Authorized {
				c.log.Info("not authorized, starting auth flow")
				flow := auth.NewFlow(termAuth{input: input}, auth.SendCodeOptions{})
				if err := c.client.Auth().IfNecessary(ctx, flow); err != nil {
					return fmt.Errorf("auth flow failed: %w", err)
				}
			}

			c.api = c.client.API()
			c.sender = message.NewSender(c.api)

			select {
			case ready <- nil:
			default:
			}

			// Block until context done to keep the connection alive.
			<-ctx.Done()
			return ctx.Err()
		})
		if err != nil {
			select {
			case ready <- err:
			default:
			}
		}
		return err
	})

	select {
	case err := <-ready:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the connection down and waits for the run loop to exit.
func (c *Client) Close() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	if err := c.runGroup.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *Client) cachedPeer(entity domain.Entity) (tg.InputPeerClass, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.peers[entity]
	return p, ok
}

func (c *Client) cachePeer(entity domain.Entity, peer tg.InputPeerClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers[entity] = peer
}

func (c *Client) cachedDocument(msgID int) (*tg.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.docs[msgID]
	return d, ok
}

func (c *Client) cacheDocument(msgID int, doc *tg.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[msgID] = doc
}
