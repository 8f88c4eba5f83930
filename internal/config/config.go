package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server  ServerConfig           `toml:"server"`
	Data    DataConfig             `toml:"data"`
	Curve   CurveConfig            `toml:"curve"`
	Missing MissingConfig          `toml:"missing"`
	Hotels  map[string]HotelConfig `toml:"hotels"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据目录配置
type DataConfig struct {
	DataDir   string `toml:"data_dir"`   // 台帐数据库所在目录
	OutputDir string `toml:"output_dir"` // 快照与各类 CSV 产物目录
	AckDir    string `toml:"ack_dir"`    // 缺失确认目录，缺省时落在 OutputDir 下
}

// CurveConfig 订房曲线配置
type CurveConfig struct {
	MaxLT int `toml:"max_lt"`
}

// MissingConfig 缺失扫描配置
type MissingConfig struct {
	WindowDays    int `toml:"window_days"`
	HorizonMonths int `toml:"horizon_months"`
}

// HotelConfig 单酒店配置
// raw_root_dir 与 adapter_type 为必填项，缺失即硬停止，不做静默兜底
type HotelConfig struct {
	DisplayName       string `toml:"display_name"`
	Capacity          int    `toml:"capacity"`
	RawRootDir        string `toml:"raw_root_dir"`
	IncludeSubfolders bool   `toml:"include_subfolders"`
	AdapterType       string `toml:"adapter_type"`
	Layout            string `toml:"layout"` // auto / inline / shifted
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20472,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:   "data",
			OutputDir: "output",
		},
		Curve: CurveConfig{
			MaxLT: 120,
		},
		Missing: MissingConfig{
			WindowDays:    180,
			HorizonMonths: 3,
		},
		Hotels: map[string]HotelConfig{},
	}
}

// LoadConfig 从指定路径加载 config.toml
// 文件不存在时返回默认配置；酒店配置非法时返回错误
func LoadConfig(path string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate 校验配置，必填键缺失即报错
func (c *AppConfig) Validate() error {
	ids := make([]string, 0, len(c.Hotels))
	for id := range c.Hotels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		h := c.Hotels[id]
		if h.RawRootDir == "" {
			return fmt.Errorf("hotel %s: raw_root_dir is required", id)
		}
		if h.AdapterType == "" {
			return fmt.Errorf("hotel %s: adapter_type is required", id)
		}
		if h.AdapterType != "nface" {
			return fmt.Errorf("hotel %s: unsupported adapter_type %q", id, h.AdapterType)
		}
		switch h.Layout {
		case "", "auto", "inline", "shifted":
		default:
			return fmt.Errorf("hotel %s: unsupported layout %q", id, h.Layout)
		}
	}
	return nil
}

// Hotel 取出单酒店配置
func (c *AppConfig) Hotel(id string) (HotelConfig, error) {
	h, ok := c.Hotels[id]
	if !ok {
		return HotelConfig{}, fmt.Errorf("hotel %s not found in config", id)
	}
	return h, nil
}

// HotelIDs 返回全部酒店 ID（升序）
func (c *AppConfig) HotelIDs() []string {
	ids := make([]string, 0, len(c.Hotels))
	for id := range c.Hotels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AckDir 返回缺失确认目录，缺省落在 OutputDir 下
func (c *AppConfig) AckDir() string {
	if c.Data.AckDir != "" {
		return c.Data.AckDir
	}
	return filepath.Join(c.Data.OutputDir, "ack")
}

// LedgerDBPath 返回灌入台帐数据库路径
func (c *AppConfig) LedgerDBPath() string {
	return filepath.Join(c.Data.DataDir, "curvelab.db")
}
