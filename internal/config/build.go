package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/pkg/adapters/oracle"
	"github.com/aretw0/furrow/pkg/adapters/process"
	redisstore "github.com/aretw0/furrow/pkg/adapters/redis"
	"github.com/aretw0/furrow/pkg/adapters/worker"
	"github.com/aretw0/furrow/pkg/agent"
	"github.com/aretw0/furrow/pkg/classifier"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/persistence/middleware"
	"github.com/aretw0/furrow/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// Assembly is a configured set of supervisor options plus the resources
// that must be released when the supervisor stops.
type Assembly struct {
	Options []furrow.Option
	Redis   *redisstore.Store
}

// Close releases the resources opened by Build.
func (a *Assembly) Close() error {
	if a.Redis != nil {
		return a.Redis.Close()
	}
	return nil
}

// Build turns the config into supervisor options.
func Build(cfg *Config, logger *slog.Logger) (*Assembly, error) {
	sc := cfg.Supervisor
	a := &Assembly{Options: []furrow.Option{
		furrow.WithLogger(logger),
		furrow.WithWindow(sc.Window),
		furrow.WithMaxCycles(sc.MaxCycles),
		furrow.WithWorkerTimeout(sc.WorkerTimeout),
		furrow.WithMaxInputSize(sc.MaxInputSize),
		furrow.WithApology(sc.Apology),
		furrow.WithInactivityTimeout(sc.InactivityTimeout),
		furrow.WithIntervals(sc.HealthInterval, sc.CleanupInterval),
	}}

	for _, wc := range cfg.Workers {
		w, opts, err := BuildWorker(wc)
		if err != nil {
			return nil, err
		}
		a.Options = append(a.Options, furrow.WithWorker(w, opts...))
	}

	if sc.RulesFile != "" {
		matcher, err := classifier.LoadRules(sc.RulesFile)
		if err != nil {
			return nil, err
		}
		a.Options = append(a.Options, furrow.WithFallback(matcher))
	}

	o, err := BuildOracle(cfg.Oracle)
	if err != nil {
		return nil, err
	}
	if o != nil {
		a.Options = append(a.Options, furrow.WithOracle(o,
			classifier.WithOracleTimeout(cfg.Oracle.Timeout),
			classifier.WithDecisionCache(cfg.Oracle.CacheSize, cfg.Oracle.CacheTTL),
		))
	}

	if cfg.Redis.Addr != "" {
		var opts []redisstore.Option
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redisstore.WithTTL(cfg.Redis.TTL))
		}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.Redis.Prefix))
		}
		mws, err := storeMiddleware(cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.Redis = redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		a.Options = append(a.Options, furrow.WithPersistence(middleware.Chain(a.Redis, mws...)))
		if cfg.Redis.Lock {
			a.Options = append(a.Options, furrow.WithLocker(redisstore.NewLocker(a.Redis.Client(), cfg.Redis.Prefix)))
		}
	}
	return a, nil
}

// storeMiddleware masks facts first so the sealed payload never holds them.
func storeMiddleware(rc RedisConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(rc.MaskFacts) > 0 {
		mw, err := middleware.NewPIIMiddleware(rc.MaskFacts)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if rc.EncryptionKey != "" {
		active, err := middleware.DecodeKey(rc.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("redis.encryption_key: %w", err)
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for i, k := range rc.FallbackKeys {
			key, err := middleware.DecodeKey(expandEnv(k))
			if err != nil {
				return nil, fmt.Errorf("redis.fallback_keys[%d]: %w", i, err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// BuildWorker creates the worker declared by wc.
func BuildWorker(wc WorkerConfig) (ports.Worker, []agent.Option, error) {
	var opts []agent.Option
	if wc.Timeout > 0 {
		opts = append(opts, agent.WithTimeout(wc.Timeout))
	}
	name := domain.WorkerName(wc.Name)

	switch wc.Kind {
	case KindStatic:
		var s StaticSettings
		if err := decodeSettings(wc.Settings, &s); err != nil {
			return nil, nil, fmt.Errorf("worker %q: %w", wc.Name, err)
		}
		var sopts []worker.StaticOption
		if wc.Summary != "" {
			sopts = append(sopts, worker.WithSummary(wc.Summary))
		}
		if len(wc.Tags) > 0 {
			sopts = append(sopts, worker.WithTags(wc.Tags...))
		}
		if s.Redirect != "" {
			sopts = append(sopts, worker.WithRedirect(domain.WorkerName(s.Redirect)))
		}
		if s.Delay > 0 {
			sopts = append(sopts, worker.WithDelay(s.Delay))
		}
		return worker.NewStatic(name, s.Text, sopts...), opts, nil

	case KindHTTP:
		var s HTTPSettings
		if err := decodeSettings(wc.Settings, &s); err != nil {
			return nil, nil, fmt.Errorf("worker %q: %w", wc.Name, err)
		}
		if s.URL == "" {
			return nil, nil, fmt.Errorf("worker %q: settings.url is required", wc.Name)
		}
		var hopts []worker.HTTPOption
		for k, v := range s.Headers {
			hopts = append(hopts, worker.WithHeader(k, expandEnv(v)))
		}
		desc := domain.WorkerDescriptor{Name: name, Summary: wc.Summary, Tags: wc.Tags}
		return worker.NewHTTP(desc, s.URL, hopts...), opts, nil

	case KindProcess:
		var s ProcessSettings
		if err := decodeSettings(wc.Settings, &s); err != nil {
			return nil, nil, fmt.Errorf("worker %q: %w", wc.Name, err)
		}
		if s.Command == "" {
			return nil, nil, fmt.Errorf("worker %q: settings.command is required", wc.Name)
		}
		env := make(map[string]string, len(s.Env))
		for k, v := range s.Env {
			env[k] = expandEnv(v)
		}
		desc := domain.WorkerDescriptor{Name: name, Summary: wc.Summary, Tags: wc.Tags}
		return process.NewWorker(desc, s.Command, s.Args, process.WithEnv(env), process.WithDir(s.Dir)), opts, nil
	}
	return nil, nil, fmt.Errorf("worker %q: unknown kind %q", wc.Name, wc.Kind)
}

func decodeSettings(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}

var errUnknownProvider = errors.New("unknown oracle provider")

// BuildOracle creates the configured oracle, or nil when none is configured.
func BuildOracle(oc OracleConfig) (ports.Oracle, error) {
	switch oc.Provider {
	case ProviderNone, "":
		return nil, nil
	case ProviderAnthropic:
		var req []option.RequestOption
		if oc.BaseURL != "" {
			req = append(req, option.WithBaseURL(oc.BaseURL))
		}
		return oracle.NewAnthropic(oc.APIKey,
			oracle.WithAnthropicModel(oc.Model),
			oracle.WithAnthropicRequestOptions(req...),
		), nil
	case ProviderOpenAI:
		return oracle.NewOpenAI(oc.APIKey,
			oracle.WithOpenAIModel(oc.Model),
			oracle.WithOpenAIBaseURL(oc.BaseURL),
		), nil
	case ProviderGemini:
		return oracle.NewGemini(context.Background(), oc.APIKey,
			oracle.WithGeminiModel(oc.Model),
			oracle.WithGeminiBaseURL(oc.BaseURL),
		)
	}
	return nil, fmt.Errorf("%w %q", errUnknownProvider, oc.Provider)
}
