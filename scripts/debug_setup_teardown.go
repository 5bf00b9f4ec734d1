// Debug helper for testing setup/teardown flows against a throwaway root.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imbi7py/snafu/internal/selfinstall"
)

func main() {
	tmp, err := os.MkdirTemp("", "debugsetup")
	if err != nil {
		panic(err)
	}
	root := filepath.Join(tmp, "SNAFU")
	_ = os.Setenv("SNAFU_ROOT", root)
	_ = os.Setenv("SNAFU_TEST_NO_SETX", "1")

	src := filepath.Join(tmp, "snafu-src")
	_ = os.WriteFile(src, []byte("launcher"), 0o755)

	actions, err := selfinstall.Setup(context.Background(), selfinstall.Options{
		From: src, AddToPath: false, Out: os.Stdout,
	})
	fmt.Println("setup actions:", actions, "err:", err)

	st, err := selfinstall.GetStatus()
	fmt.Printf("status: %+v err: %v\n", st, err)

	actions, err = selfinstall.Teardown(true)
	fmt.Println("teardown actions:", actions, "err:", err)

	if _, err := os.Stat(root); err != nil {
		fmt.Println("root removed as expected")
	} else {
		fmt.Println("root still exists:")
		ents, _ := os.ReadDir(root)
		for _, e := range ents {
			fmt.Println(" - entry:", e.Name())
		}
	}
	_ = os.RemoveAll(tmp)
}
