package topofile

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"ICSFlowGen/internal/topology"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
)

// luaMapper keeps table keys as written; protocol names are case sensitive.
var luaMapper = gluamapper.NewMapper(gluamapper.Option{
	NameFunc: func(s string) string { return s },
	TagName:  "lua",
})

// ReadLua executes a Lua file that returns a topology table.
func ReadLua(path string) (topology.Description, error) {
	var desc topology.Description

	L := lua.NewState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return desc, fmt.Errorf("failed to execute lua topology '%s': %w", path, err)
	}

	table, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return desc, fmt.Errorf("lua topology '%s' did not return a table", path)
	}
	if err := luaMapper.Map(table, &desc); err != nil {
		return desc, fmt.Errorf("failed to map lua topology '%s': %w", path, err)
	}
	return desc, nil
}

// WriteLua renders the description as a Lua chunk that ReadLua accepts.
func WriteLua(w io.Writer, desc topology.Description) error {
	fmt.Fprintln(w, "local topology = {}")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "-- CONNECTIONS --------------------------------------")
	fmt.Fprintln(w, "topology.connections = {")
	for _, c := range desc.Connections {
		fmt.Fprintln(w, "\t{")
		fmt.Fprintf(w, "\t\tfrequency = %s,\n", formatNumber(c.Frequency))

		fmt.Fprintln(w, "\t\tprotocols = {")
		names := make([]string, 0, len(c.Protocols))
		for name := range c.Protocols {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "\t\t\t[%q] = %s,\n", name, formatNumber(c.Protocols[name]))
		}
		fmt.Fprintln(w, "\t\t},")

		writeLuaZone(w, "zone_a", c.ZoneA)
		writeLuaZone(w, "zone_b", c.ZoneB)
		fmt.Fprintln(w, "\t},")
	}
	fmt.Fprintln(w, "}")
	fmt.Fprintln(w)
	_, err := fmt.Fprintln(w, "return topology")
	return err
}

func writeLuaZone(w io.Writer, name string, devices []topology.DeviceDescription) {
	fmt.Fprintf(w, "\t\t%s = {\n", name)
	for _, d := range devices {
		fmt.Fprintf(w, "\t\t\t{ id = %d, ip = %q, mac = %q, type = %q },\n", d.ID, d.IP, d.MAC, d.Type)
	}
	fmt.Fprintln(w, "\t\t},")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
