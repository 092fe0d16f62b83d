package output

import (
	"encoding/hex"
	"fmt"
	"testing"
)

func mustHexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex fixture: %v", err)
	}
	return b
}

func TestSplit128BERoot(t *testing.T) {
	raw := mustHexBytes(t, "730f1037780b3b53cfaecdb95fc648ce719479a58afd4325a62b0c5e09e83090")
	var word [32]byte
	copy(word[:], raw)

	low, high := Split128BE(word)
	if got := fmt.Sprintf("%x", low); got != "719479a58afd4325a62b0c5e09e83090" {
		t.Errorf("low = %s, want 719479a58afd4325a62b0c5e09e83090", got)
	}
	if got := fmt.Sprintf("%x", high); got != "730f1037780b3b53cfaecdb95fc648ce" {
		t.Errorf("high = %s, want 730f1037780b3b53cfaecdb95fc648ce", got)
	}
}

func TestChunkLEWordOrder(t *testing.T) {
	// First 8 bytes of cairo_format_tasks's encoded_task fixture:
	// 23 c6 9f e8 ce b1 10 87 -> little-endian word 0x8710b1cee89fc623.
	data := mustHexBytes(t, "23c69fe8ceb11087")
	words, n := ChunkLE(data)
	if n != 8 {
		t.Fatalf("byteLen = %d, want 8", n)
	}
	if len(words) != 1 {
		t.Fatalf("len(words) = %d, want 1", len(words))
	}
	if want := uint64(0x8710b1cee89fc623); words[0] != want {
		t.Errorf("words[0] = %#x, want %#x", words[0], want)
	}
}

func TestChunkLEPadsFinalWord(t *testing.T) {
	// 3 trailing bytes become a single little-endian word, high bytes
	// zero-padded since fewer than 8 bytes remain.
	data := mustHexBytes(t, "6d7573")
	words, n := ChunkLE(data)
	if n != 3 {
		t.Fatalf("byteLen = %d, want 3", n)
	}
	if len(words) != 1 {
		t.Fatalf("len(words) = %d, want 1", len(words))
	}
	if want := uint64(0x73756d); words[0] != want {
		t.Errorf("words[0] = %#x, want %#x", words[0], want)
	}
}

func TestSplit128LEReversesLimbs(t *testing.T) {
	var word [32]byte
	for i := range word {
		word[i] = byte(i + 1)
	}
	leLow, leHigh := Split128LE(word)

	for i := 0; i < 16; i++ {
		if leLow[i] != word[15-i] {
			t.Fatalf("low not reversed(bytes[0:16]) at %d", i)
		}
		if leHigh[i] != word[31-i] {
			t.Fatalf("high not reversed(bytes[16:32]) at %d", i)
		}
	}
}

func TestSplit128LEAccountKey(t *testing.T) {
	raw := mustHexBytes(t, "4ee516ed41ff168cfccb34c4efa2db7e4f369c363cf9480dc12886f2b6fb82a5")
	var word [32]byte
	copy(word[:], raw)

	low, high := Split128LE(word)
	if got := fmt.Sprintf("%x", low); got != "7edba2efc434cbfc8c16ff41ed16e54e" {
		t.Errorf("low = %s, want 7edba2efc434cbfc8c16ff41ed16e54e", got)
	}
	if got := fmt.Sprintf("%x", high); got != "a582fbb6f28628c10d48f93c369c364f" {
		t.Errorf("high = %s, want a582fbb6f28628c10d48f93c369c364f", got)
	}
}

// TestChunkLEHeaderRLP chunks a real 553-byte mainnet header RLP and checks
// the full little-endian word sequence the prover's calldata carries.
func TestChunkLEHeaderRLP(t *testing.T) {
	rlp := mustHexBytes(t,
		"f90226a018a6770e7e502f9209082c676922bbf1ad4f984924a17743d3044e6b3ffd8f19a01dcc4de8dec75d7aab85b5"+
			"67b6ccd41ad312451b948a7413f0a142fd40d49347947cbd790123255d9467d22baa806c9f059e558dc1a0156be497b4"+
			"5c06194d49508c8dca1ecef038ab4d3bd6060de6cfa2c9a4c3591ca0dcf5dc08c6e2720af2576fad9b9cccc66c0b50e5"+
			"3ebdd946bf0529ea750acb27a0d365f953867eadc22b2b2ded7cd620d92214e06671fd95e4f4d0b4747a4d2906b90100"+
			"0040020a0900000206083c210411006001d1080000040000001800a48100083040001000e00102090013424000844400"+
			"000004004800020030144004a0600820448001000821811080002108880408100000404001140a1000004c004080020a"+
			"280280280a108000025800044a044903800914004080000000c04015980109800022000002018804242400200a004a00"+
			"000000201208804808001000c652088103080400100000060c00000000001000100022800a18000a2034a20004020001"+
			"0000013e000030000510000020020401004001100088000052008e0345802b0828b0005000a001120102200280842040"+
			"2401000020001000820022400840081080834b90248401c9c380838ef3b5846588daac856c696e7578a03310d07ba1b9"+
			"123c44429746f84d32df7e725178ae2c66404a3afad502c0a402880000000000000000849ac020c3a01e922a1e8e7954"+
			"14af0458d9af8d1fa08f5365cb4efb05273c3004b882cd3c84",
	)

	want := []string{
		"0xe77a618a02602f9", "0x672c0809922f507e", "0x49984fadf1bb2269", "0x6b4e04d34377a124",
		"0x4dcc1da0198ffd3f", "0xb585ab7a5dc7dee8", "0x4512d31ad4ccb667", "0x42a1f013748a941b",
		"0xbd7c944793d440fd", "0xd267945d25230179", "0x559e059f6c80aa2b", "0xb497e46b15a0c18d",
		"0x8d8c50494d19065c", "0x3b4dab38f0ce1eca", "0xa4c9a2cfe60d06d6", "0x8dcf5dca01c59c3",
		"0xad6f57f20a72e2c6", "0xe5500b6cc6cc9c9b", "0xea2905bf46d9bd3e", "0xf965d3a027cb0a75",
		"0x2d2b2bc2ad7e8653", "0xe01422d920d67ced", "0xb4d0f4e495fd7166", "0x1b906294d7a74",
		"0x20000090a024000", "0x60001104213c0806", "0x4000008d101", "0x30080081a4001800",
		"0x90201e000100040", "0x44840040421300", "0x2004800040000", "0x200860a004401430",
		"0x1081210800018044", "0x1008048808210080", "0x100a140140400000", "0xa028040004c0000",
		"0x80100a28800228", "0x349044a04005802", "0x804000140980", "0x800901981540c000",
		"0x488010200002200", "0x4a000a20002424", "0x4880081220000000", "0x810852c600100008",
		"0x600001000040803", "0x1000000000000c", "0xa00180a80220010", "0x100020400a23420",
		"0x3000003e010000", "0x104022000001005", "0x880010014000", "0x82b8045038e0052",
		"0x1201a0005000b028", "0x4020848002200201", "0x10002000000124", "0x1008400840220082",
		"0xc9018424904b8380", "0x6584b5f38e8380c3", "0x756e696c85acda88", "0xb9a17bd01033a078",
		"0x4df8469742443c12", "0x2cae7851727edf32", "0xc002d5fa3a4a4066", "0x8802a4",
		"0xc320c09a84000000", "0x54798e1e2a921ea0", "0x1f8dafd95804af14", "0x5fb4ecb65538fa0",
		"0x3ccd82b804303c27", "0x84",
	}

	words, n := ChunkLE(rlp)
	if n != 553 {
		t.Fatalf("byteLen = %d, want 553", n)
	}
	if len(words) != len(want) {
		t.Fatalf("len(words) = %d, want %d", len(words), len(want))
	}
	for i, w := range words {
		if got := fmt.Sprintf("0x%x", w); got != want[i] {
			t.Errorf("words[%d] = %s, want %s", i, got, want[i])
		}
	}
}
