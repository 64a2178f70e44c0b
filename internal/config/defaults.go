package config

const (
	appDirName           = "ROLLER"
	configFileName       = "config.toml"
	projectConfigName    = "roller.toml"
	defaultAssetDir      = "FATDATA"
	defaultOutputName    = "fatdata"
	defaultAudioDirName  = "audio"
	defaultSectorSize    = 2048
	defaultVerifyTimeout = 5
	defaultSplitTimeout  = 600
	defaultReleaseRepo   = "FatalDecomp/ROLLER"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultWorkDirName   = "roller-installer"
	defaultLogDirName    = "logs"
	defaultStateDirName  = "state"
)

// SectorSizes lists the accepted ISO sector sizes: cooked mode 1, mode 2
// form 1 without sync/header, and raw.
var SectorSizes = []int{2048, 2336, 2352}

// Default returns a Config populated with repository defaults. Platform
// directories that cannot be resolved are left empty and filled in by
// normalize.
func Default() Config {
	cfg := Config{
		Extraction: Extraction{
			AssetDir:            defaultAssetDir,
			OutputName:          defaultOutputName,
			AudioDirName:        defaultAudioDirName,
			LowercasePlainNames: true,
		},
		ISO: ISO{
			SectorSize: defaultSectorSize,
		},
		Tools: Tools{
			VerifyTimeout: defaultVerifyTimeout,
			SplitTimeout:  defaultSplitTimeout,
		},
		Release: Release{
			Repository: defaultReleaseRepo,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
	if dir, err := InstallDir(); err == nil {
		cfg.Paths.InstallDir = dir
	}
	if dir, err := ConfigDir(); err == nil {
		cfg.Paths.LogDir = joinPath(dir, defaultLogDirName)
		cfg.Paths.StateDir = joinPath(dir, defaultStateDirName)
	}
	cfg.Paths.WorkDir = defaultWorkDir()
	return cfg
}
