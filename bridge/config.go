package bridge

import "github.com/BurntSushi/toml"

// BridgeConfig configures the optional peer-directory layer (package
// peer): which etcd endpoints to register/discover against, how long a
// registration's lease lives before it must be renewed, how many
// endpoints to keep pooled per peer (peer.DialConfig pools connections
// through a peer.EndpointPool once PoolSize is greater than 1), which
// wire codec to speak, and how often an idle connection sends a
// heartbeat frame. Building a Session directly never needs this — it is
// only consumed by peer.DialConfig and peer.ServeConfig.
type BridgeConfig struct {
	EtcdEndpoints    []string `toml:"etcd_endpoints"`
	RegistryTTL      int64    `toml:"registry_ttl_seconds"`
	PoolSize         int      `toml:"pool_size"`
	Codec            string   `toml:"codec"`
	HeartbeatSeconds int      `toml:"heartbeat_seconds"`
}

// defaultConfig holds the values a field left unset in a TOML file
// should fall back to.
func defaultConfig() BridgeConfig {
	return BridgeConfig{
		RegistryTTL:      10,
		PoolSize:         4,
		Codec:            "binary",
		HeartbeatSeconds: 30,
	}
}

// LoadConfig decodes a BridgeConfig from a TOML file at path, applying
// defaultConfig for any field the file leaves unset.
func LoadConfig(path string) (*BridgeConfig, error) {
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
