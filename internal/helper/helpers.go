package helper

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"sync"
)

type ServerErrorReporter interface {
	ReportServerError(r *http.Request, err error)
}

type HelperRepository struct {
	baseUrl    *string
	WG         *sync.WaitGroup
	errHandler ServerErrorReporter
}

func New(baseUrl *string, wg *sync.WaitGroup) *HelperRepository {
	return &HelperRepository{
		baseUrl: baseUrl,
		WG:      wg,
	}
}

// RegisterErrorReporter breaks the construction cycle between the helper and
// the error handler: the error handler needs email data from the helper, and
// background tasks report failures through the error handler.
func (h *HelperRepository) RegisterErrorReporter(reporter ServerErrorReporter) {
	h.errHandler = reporter
}

func (h *HelperRepository) NewEmailData() map[string]any {
	data := map[string]any{
		"BaseURL": h.baseUrl,
	}

	return data
}

// BackgroundTask runs fn in a goroutine, recovering panics and reporting any
// error so background work never kills a request.
func (h *HelperRepository) BackgroundTask(r *http.Request, fn func() error) {
	h.WG.Add(1)

	go func() {
		defer h.WG.Done()

		defer func() {
			err := recover()
			if err != nil {
				h.errHandler.ReportServerError(nil, fmt.Errorf("%s", err))
			}
		}()

		err := fn()
		if err != nil {
			h.errHandler.ReportServerError(r, err)
		}
	}()
}

const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReferralCode produces a random 8-character code from an alphabet
// with lookalike characters removed. Uniqueness is enforced by the database
// constraint; callers retry on conflict.
func (h *HelperRepository) GenerateReferralCode() (string, error) {
	code := make([]byte, 8)
	max := big.NewInt(int64(len(referralCodeAlphabet)))

	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = referralCodeAlphabet[n.Int64()]
	}

	return string(code), nil
}
