// Package mmap maps read-only files into memory.
//
// The local blob store uses it to serve dataset, ground-truth and index
// snapshot files without copying them through kernel buffers. Dataset files
// are consumed front to back exactly once, so callers advise the kernel with
// AccessSequential after opening.
//
//	m, err := mmap.Open("deep1m_base.fbin")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix uses mmap(2)/madvise(2); Windows uses CreateFileMapping and treats
// Advise as a no-op.
package mmap
