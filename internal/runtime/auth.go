package runtime

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	gc "github.com/joshsymonds/chronocadence/internal/gmail"
)

// AuthMode selects where Gmail credentials come from.
type AuthMode string

const (
	// AuthToken uses credentials.json + token.json in the config directory,
	// running a console consent flow when no token is cached yet.
	AuthToken AuthMode = "token"
	// AuthGmailctl reuses an existing gmailctl configuration directory.
	AuthGmailctl AuthMode = "gmailctl"
)

const (
	credentialsFile = "credentials.json"
	tokenFile       = "token.json"
)

// NewGmailClient builds a read-only Gmail client. in/out are used only when the
// token flow needs the user to paste an authorization code.
func NewGmailClient(ctx context.Context, cfgDir string, mode AuthMode, in io.Reader, out io.Writer) (gc.Client, error) {
	var (
		svc *gmail.Service
		err error
	)
	switch mode {
	case AuthGmailctl:
		svc, err = (localcred.Provider{}).Service(ctx, cfgDir)
	case AuthToken, "":
		svc, err = tokenService(ctx, cfgDir, in, out)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
	if err != nil {
		return nil, err
	}
	return NewGoogleAPIClient(svc), nil
}

func tokenService(ctx context.Context, cfgDir string, in io.Reader, out io.Writer) (*gmail.Service, error) {
	secret, err := os.ReadFile(filepath.Join(cfgDir, credentialsFile)) // #nosec G304 - user config dir
	if err != nil {
		return nil, fmt.Errorf("read client credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(secret, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse client credentials: %w", err)
	}
	tokPath := filepath.Join(cfgDir, tokenFile)
	tok, err := loadToken(tokPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		tok, err = consoleConsent(ctx, conf, in, out)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokPath, tok); err != nil {
			return nil, err
		}
	}
	svc, err := gmail.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path) // #nosec G304 - user config dir
	if err != nil {
		return nil, fmt.Errorf("open token: %w", err)
	}
	defer func() { _ = f.Close() }()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}
	defer func() { _ = f.Close() }()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return nil
}

func consoleConsent(ctx context.Context, conf *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	if in == nil || out == nil {
		return nil, errors.New("no cached token and no terminal to authorize with")
	}
	url := conf.AuthCodeURL("chronocadence", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open this URL, authorize read-only access and paste the code:\n%s\ncode: ", url)
	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("empty authorization code")
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}
