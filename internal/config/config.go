package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lotto-server/common/logger"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config 服务配置，来源：Nacos / Etcd / 本地文件
// 注意：时间字段统一使用毫秒或秒的整数，便于 JSON 与 YAML 共用

type Config struct {
	Server struct {
		Port     int    `yaml:"port" json:"port"`
		LogLevel string `yaml:"log_level" json:"log_level"`
	} `yaml:"server" json:"server"`

	Database struct {
		DSN                string `yaml:"dsn" json:"dsn"`
		MaxOpenConns       int    `yaml:"max_open_conns" json:"max_open_conns"`
		MaxIdleConns       int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec" json:"conn_max_lifetime_sec"`
	} `yaml:"database" json:"database"`

	Redis struct {
		Addr     string `yaml:"addr" json:"addr"`
		Password string `yaml:"password" json:"password"`
		DB       int    `yaml:"db" json:"db"`
		PoolSize int    `yaml:"pool_size" json:"pool_size"`
	} `yaml:"redis" json:"redis"`

	RocketMQ struct {
		Endpoint      string `yaml:"endpoint" json:"endpoint"`
		ProducerGroup string `yaml:"producer_group" json:"producer_group"`
		TopicSettled  string `yaml:"topic_settled" json:"topic_settled"`
		AccessKey     string `yaml:"access_key" json:"access_key"`
		SecretKey     string `yaml:"secret_key" json:"secret_key"`
	} `yaml:"rocketmq" json:"rocketmq"`

	Outbox struct {
		Enabled    bool `yaml:"enabled" json:"enabled"`
		IntervalMS int  `yaml:"interval_ms" json:"interval_ms"`
		BatchSize  int  `yaml:"batch_size" json:"batch_size"`
	} `yaml:"outbox" json:"outbox"`

	Observability struct {
		EnableProm bool `yaml:"enable_prom" json:"enable_prom"`
	} `yaml:"observability" json:"observability"`

	Auth struct {
		Admin struct {
			Enabled bool   `yaml:"enabled" json:"enabled"`
			Token   string `yaml:"token" json:"token"`
		} `yaml:"admin" json:"admin"`
	} `yaml:"auth" json:"auth"`

	CORS struct {
		Enabled          bool     `yaml:"enabled" json:"enabled"`
		AllowedOrigins   []string `yaml:"allowed_origins" json:"allowed_origins"`
		AllowedMethods   []string `yaml:"allowed_methods" json:"allowed_methods"`
		AllowedHeaders   []string `yaml:"allowed_headers" json:"allowed_headers"`
		ExposedHeaders   []string `yaml:"exposed_headers" json:"exposed_headers"`
		AllowCredentials bool     `yaml:"allow_credentials" json:"allow_credentials"`
		MaxAge           int      `yaml:"max_age" json:"max_age"`
	} `yaml:"cors" json:"cors"`

	Draw DrawConfig `yaml:"draw" json:"draw"`

	// 动态配置：业务阈值（Nacos 热更新）
	Thresholds map[string]int64 `yaml:"thresholds" json:"thresholds"`
}

// DrawConfig 开奖相关配置
type DrawConfig struct {
	Store           string   `yaml:"store" json:"store"` // mysql | memory
	IntervalSec     int      `yaml:"interval_sec" json:"interval_sec"`
	StaleAfterMS    int64    `yaml:"stale_after_ms" json:"stale_after_ms"`
	Symbols         []string `yaml:"symbols" json:"symbols"`
	TicketScope     string   `yaml:"ticket_scope" json:"ticket_scope"` // all | since_last_settlement
	EvalWorkers     int      `yaml:"eval_workers" json:"eval_workers"`
	AnonymousOwners []string `yaml:"anonymous_owners" json:"anonymous_owners"`

	Scheduler struct {
		Enabled        bool `yaml:"enabled" json:"enabled"`
		LeaderLeaseSec int  `yaml:"leader_lease_sec" json:"leader_lease_sec"`
	} `yaml:"scheduler" json:"scheduler"`

	Cleanup struct {
		Enabled        bool `yaml:"enabled" json:"enabled"`
		RetentionHours int  `yaml:"retention_hours" json:"retention_hours"`
		Batch          int  `yaml:"batch" json:"batch"`
		IntervalMin    int  `yaml:"interval_min" json:"interval_min"`
	} `yaml:"cleanup" json:"cleanup"`
}

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// ThresholdStaleAfterMS 热更新阈值：开奖锁过期时间
const ThresholdStaleAfterMS = "draw_stale_after_ms"

// ApplyDefaults 填充缺省值
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.RocketMQ.TopicSettled == "" {
		c.RocketMQ.TopicSettled = "draw_settled"
	}
	if c.Outbox.IntervalMS == 0 {
		c.Outbox.IntervalMS = 1000
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 100
	}
	d := &c.Draw
	d.Store = strings.ToLower(strings.TrimSpace(d.Store))
	if d.Store == "" {
		d.Store = StoreMySQL
	}
	if d.IntervalSec == 0 {
		d.IntervalSec = 60
	}
	if d.StaleAfterMS == 0 {
		d.StaleAfterMS = 30000
	}
	if d.TicketScope == "" {
		d.TicketScope = "all"
	}
	if d.Scheduler.LeaderLeaseSec == 0 {
		d.Scheduler.LeaderLeaseSec = 50
	}
	if d.Cleanup.RetentionHours == 0 {
		d.Cleanup.RetentionHours = 7 * 24
	}
	if d.Cleanup.Batch == 0 {
		d.Cleanup.Batch = 500
	}
	if d.Cleanup.IntervalMin == 0 {
		d.Cleanup.IntervalMin = 60
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error
	d := c.Draw
	if d.Store != StoreMySQL && d.Store != StoreMemory {
		errs = append(errs, fmt.Errorf("draw.store must be mysql or memory, got %q", d.Store))
	}
	if d.Store == StoreMySQL && strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required when draw.store=mysql"))
	}
	if d.IntervalSec < 60 || d.IntervalSec%60 != 0 {
		errs = append(errs, fmt.Errorf("draw.interval_sec must be a positive multiple of 60, got %d", d.IntervalSec))
	}
	if d.StaleAfterMS < 0 {
		errs = append(errs, errors.New("draw.stale_after_ms must not be negative"))
	}
	if d.TicketScope != "all" && d.TicketScope != "since_last_settlement" {
		errs = append(errs, fmt.Errorf("draw.ticket_scope must be all or since_last_settlement, got %q", d.TicketScope))
	}
	if d.Cleanup.Batch < 0 || d.Cleanup.Batch > 500 {
		errs = append(errs, fmt.Errorf("draw.cleanup.batch must be within 1..500, got %d", d.Cleanup.Batch))
	}
	if c.Auth.Admin.Enabled && strings.TrimSpace(c.Auth.Admin.Token) == "" {
		errs = append(errs, errors.New("auth.admin.token is required when admin auth is enabled"))
	}
	return errors.Join(errs...)
}

// Interval 开奖窗口长度
func (d DrawConfig) Interval() time.Duration { return time.Duration(d.IntervalSec) * time.Second }

// Retention 票保留时长
func (d DrawConfig) Retention() time.Duration {
	return time.Duration(d.Cleanup.RetentionHours) * time.Hour
}

// Load 依次尝试 Nacos、Etcd、本地文件，成功后填充缺省值并校验
// 支持以下环境变量：
//   - NACOS_SERVER_ADDR / NACOS_DATA_ID / NACOS_NAMESPACE / NACOS_GROUP / NACOS_USERNAME / NACOS_PASSWORD / NACOS_TIMEOUT_MS
//   - ETCD_ENDPOINTS / ETCD_CONFIG_KEY / ETCD_USERNAME / ETCD_PASSWORD / ETCD_DIAL_TIMEOUT_SEC
//   - CONFIG_FILE: 本地配置文件（兜底，默认：config/dev.yaml）
func Load(ctx context.Context) (*Config, error) {
	cfg, src, err := loadRaw(ctx)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config from %s: %w", src, err)
	}
	logger.Info("config loaded", zap.String("source", src), zap.String("store", cfg.Draw.Store))
	return cfg, nil
}

func loadRaw(ctx context.Context) (*Config, string, error) {
	if strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR")) != "" {
		cfg, err := loadFromNacos(ctx)
		if err == nil {
			return cfg, "nacos:" + os.Getenv("NACOS_DATA_ID"), nil
		}
		logger.Warn("load config from nacos failed, falling back", zap.Error(err))
	}

	if strings.TrimSpace(os.Getenv("ETCD_ENDPOINTS")) != "" {
		cfg, err := loadFromEtcd(ctx)
		if err == nil {
			return cfg, "etcd:" + os.Getenv("ETCD_CONFIG_KEY"), nil
		}
		logger.Warn("load config from etcd failed, falling back", zap.Error(err))
	}

	configFile := getEnvOrDefault("CONFIG_FILE", "config/dev.yaml")
	cfg, err := LoadFile(configFile)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config from nacos, etcd and local file (%s): %w", configFile, err)
	}
	return cfg, "file:" + configFile, nil
}

// getEnvOrDefault 获取环境变量，如果不存在则返回默认值
func getEnvOrDefault(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

// LoadFile 从本地 JSON 或 YAML 文件加载配置（不填充缺省值）
func LoadFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := decode(data, filePath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decode 按名称扩展名解析；无扩展名时先 YAML 后 JSON
func decode(data []byte, name string, cfg *Config) error {
	switch filepath.Ext(name) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			if err2 := json.Unmarshal(data, cfg); err2 != nil {
				return fmt.Errorf("failed to parse config (tried YAML and JSON): yaml_err=%v, json_err=%v", err, err2)
			}
		}
	}
	return nil
}

func loadFromEtcd(ctx context.Context) (*Config, error) {
	endpoints := strings.Split(os.Getenv("ETCD_ENDPOINTS"), ",")
	for i := range endpoints {
		endpoints[i] = strings.TrimSpace(endpoints[i])
	}
	if len(endpoints) == 0 || endpoints[0] == "" {
		return nil, errors.New("empty ETCD_ENDPOINTS")
	}
	dialTimeout := 5 * time.Second
	if v := strings.TrimSpace(os.Getenv("ETCD_DIAL_TIMEOUT_SEC")); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			dialTimeout = time.Duration(sec) * time.Second
		}
	}
	key := strings.TrimSpace(os.Getenv("ETCD_CONFIG_KEY"))
	if key == "" {
		return nil, errors.New("ETCD_CONFIG_KEY not set")
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		Username:    os.Getenv("ETCD_USERNAME"),
		Password:    os.Getenv("ETCD_PASSWORD"),
		Logger:      logger.L().Named("etcd"),
	})
	if err != nil {
		return nil, fmt.Errorf("etcd connect failed: %w", err)
	}
	defer cli.Close()

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := cli.Get(ctx2, key)
	if err != nil {
		return nil, fmt.Errorf("etcd get failed: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("etcd key not found: %s", key)
	}
	var cfg Config
	if err := decode(resp.Kvs[0].Value, key, &cfg); err != nil {
		return nil, fmt.Errorf("etcd config: %w", err)
	}
	return &cfg, nil
}

// nacosEnv Nacos 连接参数（来自环境变量）
type nacosEnv struct {
	dataID, group string
	param         vo.NacosClientParam
}

func nacosFromEnv() (*nacosEnv, error) {
	serverAddr := strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR"))
	if serverAddr == "" {
		return nil, errors.New("NACOS_SERVER_ADDR not set")
	}
	dataID := strings.TrimSpace(os.Getenv("NACOS_DATA_ID"))
	if dataID == "" {
		return nil, errors.New("NACOS_DATA_ID not set")
	}

	timeoutMS := 5000
	if v := strings.TrimSpace(os.Getenv("NACOS_TIMEOUT_MS")); v != "" {
		if t, err := strconv.Atoi(v); err == nil && t > 0 {
			timeoutMS = t
		}
	}

	// 支持多个地址，逗号分隔
	var serverConfigs []constant.ServerConfig
	for _, addr := range strings.Split(serverAddr, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		host, portStr, ok := strings.Cut(addr, ":")
		if !ok {
			return nil, fmt.Errorf("invalid NACOS_SERVER_ADDR format: %s (expected host:port)", addr)
		}
		port, err := strconv.ParseUint(portStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid port in NACOS_SERVER_ADDR: %s", portStr)
		}
		serverConfigs = append(serverConfigs, constant.ServerConfig{IpAddr: host, Port: port})
	}
	if len(serverConfigs) == 0 {
		return nil, errors.New("no valid server address in NACOS_SERVER_ADDR")
	}

	clientConfig := constant.ClientConfig{
		NamespaceId:         getEnvOrDefault("NACOS_NAMESPACE", "public"),
		TimeoutMs:           uint64(timeoutMS),
		NotLoadCacheAtStart: true,
		LogDir:              "/tmp/nacos/log",
		CacheDir:            "/tmp/nacos/cache",
		LogLevel:            "warn",
	}
	username := strings.TrimSpace(os.Getenv("NACOS_USERNAME"))
	password := strings.TrimSpace(os.Getenv("NACOS_PASSWORD"))
	if username != "" && password != "" {
		clientConfig.Username = username
		clientConfig.Password = password
	}

	return &nacosEnv{
		dataID: dataID,
		group:  getEnvOrDefault("NACOS_GROUP", "DEFAULT_GROUP"),
		param:  vo.NacosClientParam{ClientConfig: &clientConfig, ServerConfigs: serverConfigs},
	}, nil
}

// nacosConfigClient 全局 Nacos 配置客户端，加载与监听共用
var nacosConfigClient config_client.IConfigClient

func nacosClient(env *nacosEnv) (config_client.IConfigClient, error) {
	if nacosConfigClient != nil {
		return nacosConfigClient, nil
	}
	c, err := clients.NewConfigClient(env.param)
	if err != nil {
		return nil, fmt.Errorf("failed to create nacos config client: %w", err)
	}
	nacosConfigClient = c
	return c, nil
}

// loadFromNacos 从 Nacos 配置中心加载配置
func loadFromNacos(_ context.Context) (*Config, error) {
	env, err := nacosFromEnv()
	if err != nil {
		return nil, err
	}
	client, err := nacosClient(env)
	if err != nil {
		return nil, err
	}
	content, err := client.GetConfig(vo.ConfigParam{DataId: env.dataID, Group: env.group})
	if err != nil {
		return nil, fmt.Errorf("failed to get config from nacos: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("nacos config is empty: dataId=%s, group=%s", env.dataID, env.group)
	}
	var cfg Config
	if err := decode([]byte(content), env.dataID, &cfg); err != nil {
		return nil, fmt.Errorf("nacos config: %w", err)
	}
	return &cfg, nil
}
