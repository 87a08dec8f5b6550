package domain

import "fmt"

type ProfileKind string

const (
	ProfileKindSource   ProfileKind = "source"
	ProfileKindStorage  ProfileKind = "storage"
	ProfileKindNotifier ProfileKind = "notifier"
)

// CredentialProfile names one configured credentials section without
// exposing its secrets.
type CredentialProfile struct {
	Name string
	Kind ProfileKind
}

func (c CredentialProfile) String() string {
	return fmt.Sprintf("%s:%s", c.Kind, c.Name)
}
