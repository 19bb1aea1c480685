// Package store 包含持久化实现：分隔符表格文件读写，以及键值存储（内存 / Redis）。
//
// 键值存储的接口定义在 core 包：
//
//	var kv core.KeyValueStore = store.NewMemoryStore()
package store
