package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"text/template"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/ppewatch/internal/errors"
)

// ShoutrrrSender sends through a shoutrrr service URL rendered per recipient,
// e.g. telegram://token@telegram?chats={{.Recipient}}. Routers are cached per
// rendered URL.
type ShoutrrrSender struct {
	urlTemplate *template.Template
	timeout     time.Duration
	routers     *cache.Cache
}

// NewShoutrrrSender parses and validates the URL template.
func NewShoutrrrSender(urlTemplate string, timeout time.Duration) (*ShoutrrrSender, error) {
	tmpl, err := template.New("shoutrrr").Option("missingkey=error").Parse(urlTemplate)
	if err != nil {
		return nil, errors.New(err).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("setting", "notification.shoutrrr.urltemplate").
			Build()
	}
	return &ShoutrrrSender{
		urlTemplate: tmpl,
		timeout:     timeout,
		// no janitor: expired routers are simply rebuilt on the next lookup
		routers: cache.New(30*time.Minute, 0),
	}, nil
}

func (s *ShoutrrrSender) Name() string { return "shoutrrr" }

func (s *ShoutrrrSender) renderURL(recipient string) (string, error) {
	var b strings.Builder
	if err := s.urlTemplate.Execute(&b, struct{ Recipient string }{recipient}); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *ShoutrrrSender) router(recipient string) (*router.ServiceRouter, error) {
	url, err := s.renderURL(recipient)
	if err != nil {
		return nil, err
	}
	if r, ok := s.routers.Get(url); ok {
		return r.(*router.ServiceRouter), nil
	}

	r, err := shoutrrr.CreateSender(url)
	if err != nil {
		return nil, fmt.Errorf("invalid shoutrrr url: %s", errors.ScrubMessage(err.Error()))
	}
	if s.timeout > 0 {
		r.Timeout = s.timeout
	}
	r.SetLogger(log.New(io.Discard, "", 0))
	s.routers.SetDefault(url, r)
	return r, nil
}

// Send delivers text to recipient. The router enforces its own timeout; ctx
// is only checked before sending.
func (s *ShoutrrrSender) Send(ctx context.Context, recipient, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r, err := s.router(recipient)
	if err != nil {
		return deliveryError(err, s.Name(), recipient)
	}

	params := stypes.Params{}
	for _, e := range r.Send(text, &params) {
		if e != nil {
			return deliveryError(fmt.Errorf("%s", errors.ScrubMessage(e.Error())), s.Name(), recipient)
		}
	}
	return nil
}

func deliveryError(err error, sender, recipient string) error {
	return errors.New(err).
		Component("notification").
		Category(errors.CategoryDelivery).
		Context("sender", sender).
		Context("recipient_len", len(recipient)).
		Build()
}
