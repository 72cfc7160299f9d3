package writer

import (
	"ICSFlowGen/internal/config"
	"ICSFlowGen/internal/factory"
	"ICSFlowGen/internal/model"
)

// --- Factory Registration ---

func init() {
	factory.RegisterWriter("text", func(def config.WriterDef, run model.RunInfo) (model.Writer, error) {
		w, err := NewTextWriter(def.Text.Path)
		if err != nil {
			return nil, err
		}
		return w, nil
	})
	factory.RegisterWriter("pcap", func(def config.WriterDef, run model.RunInfo) (model.Writer, error) {
		w, err := NewPcapWriter(def.Pcap.Path, def.Pcap.SnapLen)
		if err != nil {
			return nil, err
		}
		return w, nil
	})
	factory.RegisterWriter("msgpack", func(def config.WriterDef, run model.RunInfo) (model.Writer, error) {
		w, err := NewMsgpackWriter(def.Msgpack.RootPath, def.Msgpack.Compress, run)
		if err != nil {
			return nil, err
		}
		return w, nil
	})
	factory.RegisterWriter("clickhouse", func(def config.WriterDef, run model.RunInfo) (model.Writer, error) {
		w, err := NewClickHouseWriter(def.ClickHouse, run)
		if err != nil {
			return nil, err
		}
		return w, nil
	})
	factory.RegisterWriter("nats", func(def config.WriterDef, run model.RunInfo) (model.Writer, error) {
		w, err := NewNATSWriter(def.NATS)
		if err != nil {
			return nil, err
		}
		return w, nil
	})
}
