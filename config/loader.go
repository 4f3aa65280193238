package config

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// loader 实现 Loader 接口
type loader struct {
	v   *viper.Viper
	cfg *Config

	mu        sync.RWMutex
	watches   map[string][]chan Event
	oldValues map[string]any
}

func newLoader(cfg *Config) *loader {
	return &loader{
		v:         viper.New(),
		cfg:       cfg,
		watches:   make(map[string][]chan Event),
		oldValues: make(map[string]any),
	}
}

// load 从所有来源加载配置。
// 优先级：环境变量 > .env 文件 > 配置文件。
func (l *loader) load() error {
	l.v.SetConfigName(l.cfg.Name)
	l.v.SetConfigType(l.cfg.FileType)
	for _, path := range l.cfg.Paths {
		l.v.AddConfigPath(path)
	}

	// 环境变量优先于一切，先设置以捕获全部变量
	l.v.SetEnvPrefix(l.cfg.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	l.loadDotEnv()

	if err := l.v.ReadInConfig(); err != nil {
		// 配置文件可选，仅格式错误需要上报
		var notFound viper.ConfigFileNotFoundError
		if !xerrors.As(err, &notFound) {
			return xerrors.Wrapf(err, "config: failed to read %s", l.cfg.Name)
		}
	}

	l.captureCurrentValues()

	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.loadDotEnv()
		l.notifyWatches()
	})
	l.v.WatchConfig()

	return nil
}

// loadDotEnv 尝试从搜索路径加载 .env 文件，缺失不算错误
func (l *loader) loadDotEnv() {
	_ = godotenv.Load()
	for _, path := range l.cfg.Paths {
		_ = godotenv.Load(filepath.Join(path, ".env"))
	}
}

func (l *loader) Get(key string) any {
	return l.v.Get(key)
}

// yamlTags 让反序列化按 yaml 标签匹配字段名
func yamlTags(dc *mapstructure.DecoderConfig) {
	dc.TagName = "yaml"
}

func (l *loader) Unmarshal(v any) error {
	if err := l.v.Unmarshal(v, viper.DecoderConfigOption(yamlTags)); err != nil {
		return xerrors.Wrap(err, "config: failed to unmarshal")
	}
	return nil
}

func (l *loader) UnmarshalKey(key string, v any) error {
	if err := l.v.UnmarshalKey(key, v, viper.DecoderConfigOption(yamlTags)); err != nil {
		return xerrors.Wrapf(err, "config: failed to unmarshal key %q", key)
	}
	return nil
}

func (l *loader) Settings() (*Settings, error) {
	var s Settings
	if err := l.Unmarshal(&s); err != nil {
		return nil, err
	}
	s.validate()
	return &s, nil
}

// Watch 监听指定 Key 的变化。
// 返回的通道在 context 取消后关闭。
func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}

	ch := make(chan Event, 1)
	l.mu.Lock()
	l.watches[key] = append(l.watches[key], ch)
	l.oldValues[key] = l.v.Get(key)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		subs := l.watches[key]
		for i, sub := range subs {
			if sub == ch {
				l.watches[key] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

// captureCurrentValues 记录被监听 Key 的当前值作为对比基线
func (l *loader) captureCurrentValues() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.watches {
		l.oldValues[key] = l.v.Get(key)
	}
}

// notifyWatches 向值发生变化的监听者推送事件
func (l *loader) notifyWatches() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, subs := range l.watches {
		newValue := l.v.Get(key)
		oldValue := l.oldValues[key]
		if reflect.DeepEqual(newValue, oldValue) {
			continue
		}
		l.oldValues[key] = newValue

		event := Event{Key: key, Value: newValue, OldValue: oldValue, Timestamp: now}
		for _, ch := range subs {
			select {
			case ch <- event:
			default:
			}
		}
	}
}
