// Package story 编排故事生成：消息组装、提供商分发与会话读写
package story

import (
	"context"
	"fmt"

	"z-story-studio/internal/domain/entity"
	workflowprompt "z-story-studio/internal/workflow/prompt"
)

// revisionRecordPrefix 修订记录的 instruction 前缀
const revisionRecordPrefix = "Revision: "

// Conversation 组装好的请求。系统提示不进入轮次，由后端按协议放置
type Conversation struct {
	SystemPrompt string
	Turns        []entity.Turn

	// Instruction 写入记录的指令文本
	Instruction string
	// DerivedFrom 上下文记录 ID，按调用方给定顺序
	DerivedFrom []string
}

type Assembler struct {
	prompts *workflowprompt.Registry
}

func NewAssembler(prompts *workflowprompt.Registry) *Assembler {
	return &Assembler{prompts: prompts}
}

// Fresh 新故事：单条用户轮次
func (a *Assembler) Fresh(systemPrompt, instruction string) *Conversation {
	return &Conversation{
		SystemPrompt: systemPrompt,
		Turns:        []entity.Turn{entity.UserTurn(instruction)},
		Instruction:  instruction,
		DerivedFrom:  []string{},
	}
}

// Revision 修订：每条上下文记录展开为 user/assistant 一对，最后追加修订请求。
// selected 为空时仍然组装，只剩修订请求一条轮次
func (a *Assembler) Revision(ctx context.Context, systemPrompt string, selected []*entity.StoryRecord, revisionInstruction string) (*Conversation, error) {
	if a == nil || a.prompts == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}

	synthesized, err := a.prompts.RenderUser(ctx, workflowprompt.PromptRevisionV1, map[string]any{
		workflowprompt.VarRevisionInstruction: revisionInstruction,
	})
	if err != nil {
		return nil, err
	}

	turns := make([]entity.Turn, 0, len(selected)*2+1)
	derived := make([]string, 0, len(selected))
	for _, rec := range selected {
		if rec == nil {
			continue
		}
		turns = append(turns, entity.UserTurn(rec.Instruction), entity.AssistantTurn(rec.Content))
		derived = append(derived, rec.ID)
	}
	turns = append(turns, entity.UserTurn(synthesized))

	return &Conversation{
		SystemPrompt: systemPrompt,
		Turns:        turns,
		Instruction:  revisionRecordPrefix + revisionInstruction,
		DerivedFrom:  derived,
	}, nil
}
