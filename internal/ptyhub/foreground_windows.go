//go:build windows

package ptyhub

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"
)

func foregroundPgid(sess *Session) (int, error) {
	return 0, fmt.Errorf("foreground pgid lookup not supported on windows")
}

// foregroundProcessNameWindows walks the child-process tree starting at the
// PTY's child process, greedily following the sole child of each node until
// it branches or hits a leaf, then resolves the leaf to an image name via a
// toolhelp snapshot.
func foregroundProcessNameWindows(sess *Session) string {
	if sess.cmd.Process == nil {
		return ""
	}
	rootPID := uint32(sess.cmd.Process.Pid)

	procs, err := snapshotProcesses()
	if err != nil {
		return ""
	}

	current := rootPID
	for {
		children := childrenOf(procs, current)
		if len(children) != 1 {
			break
		}
		current = children[0].pid
	}

	for _, p := range procs {
		if p.pid == current {
			name := p.exeFile
			if idx := strings.LastIndexByte(name, '\\'); idx >= 0 {
				name = name[idx+1:]
			}
			return strings.TrimSuffix(name, ".exe")
		}
	}
	return ""
}

type winProcEntry struct {
	pid, parentPid uint32
	exeFile        string
}

func childrenOf(procs []winProcEntry, parent uint32) []winProcEntry {
	var out []winProcEntry
	for _, p := range procs {
		if p.parentPid == parent {
			out = append(out, p)
		}
	}
	return out
}

const (
	th32csSnapProcess = 0x00000002
	maxPath           = 260
)

type processEntry32 struct {
	Size              uint32
	CntUsage          uint32
	ProcessID         uint32
	DefaultHeapID     uintptr
	ModuleID          uint32
	CntThreads        uint32
	ParentProcessID   uint32
	PriClassBase      int32
	Flags             uint32
	ExeFile           [maxPath]uint16
}

func snapshotProcesses() ([]winProcEntry, error) {
	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	createSnapshot := kernel32.NewProc("CreateToolhelp32Snapshot")
	processFirst := kernel32.NewProc("Process32FirstW")
	processNext := kernel32.NewProc("Process32NextW")

	h, _, _ := createSnapshot.Call(uintptr(th32csSnapProcess), 0)
	if h == 0 || h == ^uintptr(0) {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot failed")
	}
	defer syscall.CloseHandle(syscall.Handle(h))

	var entry processEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var out []winProcEntry
	r, _, _ := processFirst.Call(h, uintptr(unsafe.Pointer(&entry)))
	for r != 0 {
		out = append(out, winProcEntry{
			pid:       entry.ProcessID,
			parentPid: entry.ParentProcessID,
			exeFile:   syscall.UTF16ToString(entry.ExeFile[:]),
		})
		entry.Size = uint32(unsafe.Sizeof(entry))
		r, _, _ = processNext.Call(h, uintptr(unsafe.Pointer(&entry)))
	}
	return out, nil
}
