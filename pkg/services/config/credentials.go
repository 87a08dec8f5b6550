package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

type SourceCredentials struct {
	APIKey string
}

type TelegramCredentials struct {
	BotToken string
	ChatID   string
}

type ObjectStoreCredentials struct {
	Profile string
	Region  string
	Bucket  string
}

// Registry reads credentials from an ini file with one section per
// integration, falling back to environment variables for keys the file
// does not carry. A missing file is fine for env-only setups.
type Registry interface {
	GetProfiles(ctx context.Context) ([]domain.CredentialProfile, error)
	GetSource(ctx context.Context, provider string) (SourceCredentials, error)
	GetTelegram(ctx context.Context) (TelegramCredentials, error)
	GetObjectStore(ctx context.Context) (ObjectStoreCredentials, error)
}

type credRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return nil, err
	}
	return &credRegistry{cfg: cfg}, nil
}

func (cr *credRegistry) GetProfiles(_ context.Context) ([]domain.CredentialProfile, error) {
	var profiles []domain.CredentialProfile
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) == 0 {
			continue
		}
		profiles = append(profiles, domain.CredentialProfile{
			Name: section.Name(),
			Kind: kindOf(section.Name()),
		})
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

func (cr *credRegistry) GetSource(_ context.Context, provider string) (SourceCredentials, error) {
	envKey := strings.ToUpper(provider) + "_API_KEY"
	key := cr.value(provider, "api_key", envKey)
	if key == "" {
		return SourceCredentials{}, fmt.Errorf("no api_key for source %s (section [%s] or %s)", provider, provider, envKey)
	}
	return SourceCredentials{APIKey: key}, nil
}

func (cr *credRegistry) GetTelegram(_ context.Context) (TelegramCredentials, error) {
	creds := TelegramCredentials{
		BotToken: cr.value("telegram", "bot_token", "TELEGRAM_BOT_TOKEN"),
		ChatID:   cr.value("telegram", "chat_id", "TELEGRAM_CHAT_ID"),
	}
	if creds.BotToken == "" || creds.ChatID == "" {
		return TelegramCredentials{}, fmt.Errorf("telegram needs bot_token and chat_id (section [telegram] or TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID)")
	}
	return creds, nil
}

func (cr *credRegistry) GetObjectStore(_ context.Context) (ObjectStoreCredentials, error) {
	creds := ObjectStoreCredentials{
		Profile: cr.value("s3", "profile", "AWS_PROFILE"),
		Region:  cr.value("s3", "region", "AWS_REGION"),
		Bucket:  cr.value("s3", "bucket", "S3_BUCKET"),
	}
	if creds.Bucket == "" {
		return ObjectStoreCredentials{}, fmt.Errorf("no bucket for object storage (section [s3] or S3_BUCKET)")
	}
	return creds, nil
}

// value reads section/key from the file, then the environment.
func (cr *credRegistry) value(section, key, envKey string) string {
	if sec := cr.cfg.Section(section); sec.HasKey(key) {
		if v := sec.Key(key).String(); v != "" {
			return v
		}
	}
	return os.Getenv(envKey)
}

func kindOf(section string) domain.ProfileKind {
	switch section {
	case "s3":
		return domain.ProfileKindStorage
	case "telegram":
		return domain.ProfileKindNotifier
	}
	return domain.ProfileKindSource
}
