package config

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func TestInitialize(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := Initialize(fs, "/cfg", log.New(ioutil.Discard, "", 0)); err != nil {
		t.Fatal(err)
	}

	// Check that the config is valid
	cfg, err := Load(fs, "/cfg")
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, cfg.HasDir())

	t.Run("CreateSessionLog", func(t *testing.T) {
		fd, err := cfg.CreateSessionLog("session.log")
		assert.Nil(t, err)
		fd.Close()

		exists, err := afero.Exists(fs, "/cfg/session_logs/session.log")
		assert.Nil(t, err)
		assert.True(t, exists)
	})

	t.Run("OpenEventLog", func(t *testing.T) {
		fd, err := cfg.OpenEventLog()
		assert.Nil(t, err)
		fd.WriteString("line\n")
		fd.Close()

		fd, err = cfg.OpenEventLog()
		assert.Nil(t, err)
		fd.WriteString("line\n")
		fd.Close()

		contents, err := afero.ReadFile(fs, filepath.Join("/cfg", EventLogName))
		assert.Nil(t, err)
		assert.Equal(t, "line\nline\n", string(contents))
	})

	t.Run("ReadEventLog", func(t *testing.T) {
		fd, err := cfg.ReadEventLog()
		assert.Nil(t, err)
		fd.Close()
	})
}

func TestInitialize_keepsExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	custom := []byte("motd: hi\nprompt_suffix: \"> \"\nfarewell: bye\ncolor: never\n")
	assert.Nil(t, afero.WriteFile(fs, "/cfg/config.yaml", custom, 0600))

	cfg, err := Initialize(fs, "/cfg", log.New(ioutil.Discard, "", 0))
	assert.Nil(t, err)
	assert.Equal(t, "> ", cfg.PromptSuffix)
	assert.Equal(t, ColorNever, cfg.Color)
}

func TestLoad(t *testing.T) {
	t.Run("config file path", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		assert.Nil(t, afero.WriteFile(fs, "/cfg/config.yaml", defaultConfigData, 0600))

		cfg, err := Load(fs, "/cfg/config.yaml")
		assert.Nil(t, err)
		assert.Equal(t, Default().Motd, cfg.Motd)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Load(afero.NewMemMapFs(), "/nothing")
		assert.Error(t, err)
	})

	t.Run("unknown field", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		assert.Nil(t, afero.WriteFile(fs, "/cfg/config.yaml", []byte("ssh_port: 22\n"), 0600))

		_, err := Load(fs, "/cfg")
		assert.Error(t, err)
	})

	t.Run("invalid", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		assert.Nil(t, afero.WriteFile(fs, "/cfg/config.yaml", []byte("color: rainbow\n"), 0600))

		_, err := Load(fs, "/cfg")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config.yaml")
	})
}

func TestSessionLogs(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg, err := Initialize(fs, "/cfg", log.New(ioutil.Discard, "", 0))
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"20220102T000000-bbb.log", "20220101T000000-aaa.log", "20220103T000000-aaa2.log"} {
		fd, err := cfg.CreateSessionLog(name)
		if err != nil {
			t.Fatal(err)
		}
		fd.WriteString(name)
		fd.Close()
	}
	if err := fs.Mkdir("/cfg/session_logs/subdir", 0700); err != nil {
		t.Fatal(err)
	}

	t.Run("ListSessionLogs", func(t *testing.T) {
		entries, err := cfg.ListSessionLogs()
		assert.Nil(t, err)

		var names []string
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		assert.Equal(t, []string{"20220101T000000-aaa.log", "20220102T000000-bbb.log", "20220103T000000-aaa2.log"}, names)
	})

	cases := map[string]struct {
		ref     string
		want    string
		wantErr bool
	}{
		"file name":         {ref: "20220102T000000-bbb.log", want: "20220102T000000-bbb.log"},
		"session id":        {ref: "bbb", want: "20220102T000000-bbb.log"},
		"id isn't a prefix": {ref: "aaa", want: "20220101T000000-aaa.log"},
		"missing":           {ref: "ccc", wantErr: true},
		"empty":             {ref: "", wantErr: true},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			name, err := cfg.FindSessionLog(tc.ref)
			if tc.wantErr {
				assert.ErrorIs(t, err, os.ErrNotExist)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tc.want, name)

			fd, err := cfg.OpenSessionLog(name)
			assert.Nil(t, err)
			defer fd.Close()
			contents, err := ioutil.ReadAll(fd)
			assert.Nil(t, err)
			assert.Equal(t, tc.want, string(contents))
		})
	}

	t.Run("no dir", func(t *testing.T) {
		_, err := Default().FindSessionLog("bbb")
		assert.ErrorIs(t, err, ErrNoConfigDir)
	})
}
