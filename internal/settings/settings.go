// Package settings loads, resolves and persists notecli configuration.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// TimestampLayout is the format of the last_updated key.
const TimestampLayout = "02/01/2006 15:04"

// Settings is the user-facing configuration document.
//
// page_path and group_path are accepted as aliases of pages_path and
// groups_path. Empty derived paths fall back to locations under store_path.
type Settings struct {
	StorePath   string     `yaml:"store_path"`
	PagesPath   string     `yaml:"pages_path,omitempty"`
	PagePath    string     `yaml:"page_path,omitempty"`
	GroupsPath  string     `yaml:"groups_path,omitempty"`
	GroupPath   string     `yaml:"group_path,omitempty"`
	TempPath    string     `yaml:"temp_path,omitempty"`
	HistoryPath string     `yaml:"history_path,omitempty"`
	Editor      string     `yaml:"editor"`
	Ext         string     `yaml:"ext"`
	HistorySize int        `yaml:"history_size"`
	Namespace   string     `yaml:"namespace"`
	LogLevel    slog.Level `yaml:"log_level"`
	LastUpdated string     `yaml:"last_updated,omitempty"`
}

// Keys lists every key accepted by Store.Set.
var Keys = []string{
	"store_path",
	"pages_path",
	"page_path",
	"groups_path",
	"group_path",
	"temp_path",
	"history_path",
	"editor",
	"ext",
	"history_size",
	"namespace",
	"log_level",
	"last_updated",
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		StorePath:   "~/.notecli",
		Editor:      "vi",
		Ext:         "txt",
		HistorySize: 100,
		LogLevel:    slog.LevelWarn,
	}
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.StorePath, validation.Required),
		validation.Field(&s.Editor, validation.Required),
		validation.Field(&s.Ext, validation.Required, validation.By(bareExtension)),
		validation.Field(&s.HistorySize, validation.Required, validation.Min(1)),
		validation.Field(&s.Namespace, validation.By(relativeName)),
	)
}

func bareExtension(value any) error {
	ext, _ := value.(string)
	if strings.ContainsAny(ext, `./\`) {
		return errors.New("must not contain dots or path separators")
	}
	return nil
}

func relativeName(value any) error {
	name, _ := value.(string)
	if name == "" {
		return nil
	}
	if filepath.IsAbs(name) {
		return errors.New("must be relative")
	}
	for _, seg := range strings.Split(filepath.ToSlash(name), "/") {
		if seg == ".." {
			return errors.New("must not leave the store root")
		}
	}
	return nil
}

// pagesPath returns the pages root, honouring the page_path alias.
func (s *Settings) pagesPath() string {
	if s.PagesPath != "" {
		return s.PagesPath
	}
	return s.PagePath
}

// groupsPath returns the groups root, honouring the group_path alias.
func (s *Settings) groupsPath() string {
	if s.GroupsPath != "" {
		return s.GroupsPath
	}
	return s.GroupPath
}

// keyAliases maps alternative spellings to their canonical key.
var keyAliases = map[string]string{
	"page_path":  "pages_path",
	"group_path": "groups_path",
}

func canonicalKey(key string) string {
	if c, ok := keyAliases[key]; ok {
		return c
	}
	return key
}

func isKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

func unknownKey(key string) error {
	return fmt.Errorf("settings: unknown key %q (known: %s)", key, strings.Join(Keys, ", "))
}
