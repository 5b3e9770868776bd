package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const testSecrets = `{
  "CHAT_CONFIG": {
    "TEMPERATURE": 0.7,
    "MAX_TOKENS": 2048,
    "COST_FACTOR": 1000,
    "PROVIDERS": [
      {
        "NAME": "OpenAI",
        "ICON": "openai.svg",
        "ID": "OPENAI",
        "KEY": "sk-test-key-0123456789",
        "URL": "",
        "MODELS": [
          {"NAME": "GPT-4o", "MODEL": "gpt-4o", "MIN_CREDITS": "10"},
          {"NAME": "GPT-4o mini", "MODEL": "gpt-4o-mini", "MIN_CREDITS": "1"}
        ]
      },
      {
        "NAME": "AIML",
        "ICON": "aiml.svg",
        "ID": "AIML",
        "KEY": "aiml-key-abcdef123456",
        "URL": "https://api.aimlapi.com/v1",
        "MODELS": [
          {"NAME": "Llama 3.2 3B", "MODEL": "meta-llama/Llama-3.2-3B-Instruct-Turbo", "MIN_CREDITS": "0.5"}
        ]
      }
    ]
  }
}`

func writeTestSecrets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestStoreChatConfig 测试密钥文件读取
func TestStoreChatConfig(t *testing.T) {
	Convey("CHAT_CONFIG 读取测试", t, func() {
		ctx := context.Background()

		Convey("无缓存时直读文件", func() {
			store := NewStore(writeTestSecrets(t, testSecrets), nil, time.Minute)

			cfg, err := store.ChatConfig(ctx)
			So(err, ShouldBeNil)
			So(cfg.Temperature, ShouldEqual, 0.7)
			So(cfg.MaxTokens, ShouldEqual, 2048)
			So(cfg.CostFactor, ShouldEqual, 1000)
			So(len(cfg.Providers), ShouldEqual, 2)
		})

		Convey("目录查询", func() {
			store := NewStore(writeTestSecrets(t, testSecrets), nil, time.Minute)
			cfg, err := store.ChatConfig(ctx)
			So(err, ShouldBeNil)

			Convey("按 ID 找提供商", func() {
				p, ok := cfg.Provider("OPENAI")
				So(ok, ShouldBeTrue)
				So(p.Name, ShouldEqual, "OpenAI")

				_, ok = cfg.Provider("VERTEX")
				So(ok, ShouldBeFalse)
			})

			Convey("按模型名找条目", func() {
				p, _ := cfg.Provider("OPENAI")
				m, ok := p.Model("gpt-4o")
				So(ok, ShouldBeTrue)
				So(m.MinCredits.String(), ShouldEqual, "10")
			})

			Convey("目录成员检查", func() {
				So(cfg.IsModelAllowed("OPENAI", "gpt-4o"), ShouldBeTrue)
				So(cfg.IsModelAllowed("OPENAI", "o1-preview"), ShouldBeFalse)
				So(cfg.IsModelAllowed("TOGETHER", "gpt-4o"), ShouldBeFalse)
			})
		})

		Convey("缺省值填充", func() {
			minimal := `{"CHAT_CONFIG": {"TEMPERATURE": 0.5, "PROVIDERS": []}}`
			store := NewStore(writeTestSecrets(t, minimal), nil, time.Minute)

			cfg, err := store.ChatConfig(ctx)
			So(err, ShouldBeNil)
			So(cfg.CostFactor, ShouldEqual, 1000)
			So(cfg.MaxTokens, ShouldEqual, 4096)
		})

		Convey("文件缺失时报错", func() {
			store := NewStore(filepath.Join(t.TempDir(), "missing.json"), nil, time.Minute)
			_, err := store.ChatConfig(ctx)
			So(err, ShouldNotBeNil)
		})

		Convey("密钥引用截断", func() {
			store := NewStore(writeTestSecrets(t, testSecrets), nil, time.Minute)
			cfg, err := store.ChatConfig(ctx)
			So(err, ShouldBeNil)

			p, _ := cfg.Provider("OPENAI")
			ref := p.KeyRef()
			So(ref, ShouldNotContainSubstring, "0123456789")
			So(ref, ShouldEqual, "sk-t...6789")
		})
	})
}
