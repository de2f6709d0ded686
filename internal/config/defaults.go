package config

// Storage backends.
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
	StorageCOS   = "cos"
)

// Provider names.
const (
	TranscriptionWhisperX = "whisperx"
	TranscriptionOpenAI   = "openai"

	TTSGoogle = "google"
	TTSOpenAI = "openai"

	ProfilerPitch = "pitch"
	ProfilerLLM   = "llm"

	LipSyncHTTP    = "http"
	LipSyncWav2Lip = "wav2lip"
)

const (
	defaultWorkDir  = "~/.local/share/dubline/work"
	defaultLogDir   = "~/.local/share/dubline/logs"
	defaultStateDir = "~/.local/share/dubline/state"
	defaultStorage  = "~/.local/share/dubline/storage"

	defaultLLMBaseURL    = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel      = "google/gemini-2.5-flash"
	defaultLLMReferer    = "https://github.com/dubline/dubline"
	defaultLLMTitle      = "Dubline"
	defaultGoogleTTSURL  = "https://texttospeech.googleapis.com/v1"
	defaultVoiceFamily   = "Chirp3-HD"
	defaultVoiceProfile  = "Puck"
	defaultWhisperXModel = "large-v3"
	defaultVADMethod     = "silero"
	defaultAPIBind       = "127.0.0.1:7488"
)

// DefaultLanguages returns the built-in target language table.
func DefaultLanguages() map[string]string {
	return map[string]string{
		"Espanol":   "es-US",
		"Francais":  "fr-FR",
		"Deutsch":   "de-DE",
		"Portugues": "pt-BR",
		"Chinese":   "cmn-CN",
		"Hindi":     "hi-IN",
		"Arabic":    "ar-XA",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Storage: Storage{
			Backend:   StorageLocal,
			LocalRoot: defaultStorage,
		},
		Transcription: Transcription{
			Provider:          TranscriptionWhisperX,
			Language:          "en-US",
			WhisperXModel:     defaultWhisperXModel,
			WhisperXVADMethod: defaultVADMethod,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: 60,
		},
		Voice: Voice{
			Profiler: ProfilerPitch,
			Default:  defaultVoiceProfile,
		},
		TTS: TTS{
			Provider:       TTSGoogle,
			GoogleBaseURL:  defaultGoogleTTSURL,
			VoiceFamily:    defaultVoiceFamily,
			AudioEncoding:  "LINEAR16",
			OpenAIModel:    "tts-1",
			TimeoutSeconds: 120,
		},
		Text: Text{
			MaxChars:       4500,
			OversizePolicy: "split",
		},
		Alignment: Alignment{
			Strategy:   "remap",
			Tolerance:  0.01,
			SampleRate: 24000,
			Channels:   1,
		},
		Output: Output{
			MP3Bitrate: "192k",
		},
		Concurrency: Concurrency{
			LanguageWorkers: 3,
			ChunkWorkers:    4,
		},
		Retry: Retry{
			Attempts:    4,
			BaseDelayMS: 500,
			MaxDelayMS:  10000,
		},
		LipSync: LipSync{
			Provider:            LipSyncHTTP,
			PollIntervalSeconds: 10,
			TimeoutSeconds:      1800,
			Wav2LipCheckpoint:   "checkpoints/wav2lip_gan.pth",
			PythonBinary:        "python3",
		},
		Languages: DefaultLanguages(),
		API: API{
			Bind: defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: 10,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
