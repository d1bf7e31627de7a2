package spotify

import (
	"context"
	"fmt"
	"sync"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// renewMargin is how long before expiry the token is renewed
	renewMargin = 5 * time.Minute
	// renewRetryInterval is the wait after a failed renewal
	renewRetryInterval = 30 * time.Second
)

// tokenRenewer holds the client-credentials token and renews it on a timer.
// Callers always get the last good token; renewal failures are only logged.
type tokenRenewer struct {
	config *clientcredentials.Config
	logger *zap.Logger
	// retryInterval is the wait after a failed renewal and the shortest wait between renewals
	retryInterval time.Duration

	mutex sync.RWMutex
	token *oauth2.Token
}

func newTokenRenewer(clientID, clientSecret string, logger *zap.Logger) *tokenRenewer {
	return &tokenRenewer{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyauth.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		logger:        logger,
		retryInterval: renewRetryInterval,
	}
}

// Token implements oauth2.TokenSource. The first call fetches synchronously.
func (r *tokenRenewer) Token() (*oauth2.Token, error) {
	r.mutex.RLock()
	token := r.token
	r.mutex.RUnlock()
	if token != nil {
		return token, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return r.renew(ctx)
}

func (r *tokenRenewer) renew(ctx context.Context) (*oauth2.Token, error) {
	token, err := r.config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spotify token: %w", err)
	}

	r.mutex.Lock()
	r.token = token
	r.mutex.Unlock()

	r.logger.Debug("Spotify token renewed", zap.Time("expiry", token.Expiry))
	return token, nil
}

// next returns how long to wait before the next renewal.
func (r *tokenRenewer) next() time.Duration {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.token == nil {
		return 0
	}
	if r.token.Expiry.IsZero() {
		return time.Hour - renewMargin
	}
	return max(time.Until(r.token.Expiry)-renewMargin, r.retryInterval)
}

func (r *tokenRenewer) run(ctx context.Context) {
	timer := time.NewTimer(r.next())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		wait := r.retryInterval
		if _, err := r.renew(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Warn("Failed to renew Spotify token, retrying",
				zap.Duration("retryIn", wait),
				zap.Error(err))
		} else {
			wait = r.next()
		}
		timer.Reset(wait)
	}
}
