package hardware

import (
	"io"
	"os"
	"time"

	"github.com/tarm/serial"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
)

// SerialConfig 镖盘串口配置
type SerialConfig struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// SerialPortExists 检查串口设备是否存在
func SerialPortExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SerialOpener 返回打开镖盘串口的 Opener
func SerialOpener(cfg SerialConfig) Opener {
	return func() (io.ReadCloser, error) {
		if !SerialPortExists(cfg.Port) {
			return nil, apperrors.Newf(apperrors.ErrBoardOpen, "设备不存在: %s", cfg.Port)
		}
		port, err := serial.OpenPort(&serial.Config{
			Name:        cfg.Port,
			Baud:        cfg.BaudRate,
			Size:        8,
			Parity:      serial.ParityNone,
			StopBits:    serial.Stop1,
			ReadTimeout: cfg.ReadTimeout,
		})
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrBoardOpen, cfg.Port)
		}
		return port, nil
	}
}
